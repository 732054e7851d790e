package ipc

import (
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"time"
)

// Client provides RPC access to the daemon.
type Client struct {
	conn   net.Conn
	client *rpc.Client
}

// Dial connects to the IPC server at the given socket path.
func Dial(path string) (*Client, error) {
	conn, err := net.DialTimeout("unix", path, 2*time.Second)
	if err != nil {
		return nil, err
	}
	rpcClient := rpc.NewClientWithCodec(jsonrpc.NewClientCodec(conn))
	return &Client{conn: conn, client: rpcClient}, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	if c.client != nil {
		_ = c.client.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// Status retrieves the daemon status.
func (c *Client) Status() (*StatusResponse, error) {
	var resp StatusResponse
	if err := c.client.Call("Stereowatch.Status", StatusRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Apps lists the sessions streaming to an endpoint.
func (c *Client) Apps(endpointID string) (*AppsResponse, error) {
	var resp AppsResponse
	req := AppsRequest{EndpointID: endpointID}
	if err := c.client.Call("Stereowatch.Apps", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Events retrieves persisted mode transitions.
func (c *Client) Events(endpointID string, limit int) (*EventsResponse, error) {
	var resp EventsResponse
	req := EventsRequest{EndpointID: endpointID, Limit: limit}
	if err := c.client.Call("Stereowatch.Events", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// EventsClear removes the persisted transition history.
func (c *Client) EventsClear() (*EventsClearResponse, error) {
	var resp EventsClearResponse
	if err := c.client.Call("Stereowatch.EventsClear", EventsClearRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Stop requests the daemon to shut down.
func (c *Client) Stop() (*StopResponse, error) {
	var resp StopResponse
	if err := c.client.Call("Stereowatch.Stop", StopRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// TestNotification triggers a notification test via the daemon.
func (c *Client) TestNotification() (*TestNotificationResponse, error) {
	var resp TestNotificationResponse
	if err := c.client.Call("Stereowatch.TestNotification", TestNotificationRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
