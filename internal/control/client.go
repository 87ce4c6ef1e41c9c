package control

import (
	"fmt"

	"github.com/godbus/dbus/v5"
)

// Client is the proxy side of the control surface, used by rsg.
type Client struct {
	conn *dbus.Conn
	obj  dbus.BusObject
}

func Dial() (*Client, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, fmt.Errorf("connect session bus: %w", err)
	}
	return &Client{
		conn: conn,
		obj:  conn.Object(BusName, ObjectPath),
	}, nil
}

func (c *Client) Close() error { return c.conn.Close() }

func (c *Client) call(method string, args ...any) error {
	return c.obj.Call(InterfaceName+"."+method, 0, args...).Err
}

// TestConnection probes whether a daemon instance owns the bus name.
func (c *Client) TestConnection() error { return c.call("TestConnection") }

func (c *Client) Play() error { return c.call("Play") }

func (c *Client) PlayBvid(bvid string) error { return c.call("PlayBvid", bvid) }

func (c *Client) Pause() error { return c.call("Pause") }

func (c *Client) Next() error { return c.call("Next") }

func (c *Client) Previous() error { return c.call("Previous") }

func (c *Client) Stop() error { return c.call("Stop") }

func (c *Client) SetMode(mode string) error { return c.call("SetMode", mode) }

func (c *Client) PlaylistChange() error { return c.call("PlaylistChange") }

func (c *Client) PlaylistIsEmpty() error { return c.call("PlaylistIsEmpty") }
