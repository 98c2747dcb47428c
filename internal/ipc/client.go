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
	return &Client{conn: conn, client: rpc.NewClientWithCodec(jsonrpc.NewClientCodec(conn))}, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// call issues one RPC round trip and decodes the typed response.
func call[Resp any](c *Client, method string, req any) (*Resp, error) {
	resp := new(Resp)
	if err := c.client.Call(method, req, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// Stop requests the daemon to halt watching and shut down.
func (c *Client) Stop() (*StopResponse, error) {
	return call[StopResponse](c, "Vigil.Stop", StopRequest{})
}

// Status retrieves the daemon status.
func (c *Client) Status() (*StatusResponse, error) {
	return call[StatusResponse](c, "Vigil.Status", StatusRequest{})
}

// Sessions returns journaled watch attempts, optionally filtered by
// status names.
func (c *Client) Sessions(statuses []string, limit int) (*SessionListResponse, error) {
	return call[SessionListResponse](c, "Vigil.Sessions", SessionListRequest{Statuses: statuses, Limit: limit})
}

// ClearSessions removes all journaled watch attempts.
func (c *Client) ClearSessions() (*SessionClearResponse, error) {
	return call[SessionClearResponse](c, "Vigil.ClearSessions", SessionClearRequest{})
}

// TestNotification triggers a notification test via the daemon.
func (c *Client) TestNotification() (*TestNotificationResponse, error) {
	return call[TestNotificationResponse](c, "Vigil.TestNotification", TestNotificationRequest{})
}
