// Package control is the daemon's inter-process boundary: a D-Bus object
// whose methods map one to one onto dispatcher commands, plus the client
// proxy the rsg tool drives it with.
package control

import (
	"context"
	"fmt"

	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/introspect"

	"github.com/huahuadeliaoliao/RoseSong/internal/player"
	"github.com/huahuadeliaoliao/RoseSong/internal/playlist"
)

const (
	BusName                       = "org.rosesong.Player"
	ObjectPath    dbus.ObjectPath = "/org/rosesong/Player"
	InterfaceName                 = "org.rosesong.Player"
)

// Server owns the session-bus name while the daemon runs. All methods are
// fire-and-forget except TestConnection, which answers synchronously as a
// liveness probe.
type Server struct {
	conn *dbus.Conn
}

func NewServer(pl *player.Player) (*Server, error) {
	h := &handler{pl: pl}
	conn, err := serve(h)
	if err != nil {
		return nil, err
	}
	return &Server{conn: conn}, nil
}

func (s *Server) Close() error { return s.conn.Close() }

// serve connects to the session bus, exports obj and claims the well-known
// name. Failing to become primary owner means another daemon instance is
// already running.
func serve(obj any) (*dbus.Conn, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, fmt.Errorf("connect session bus: %w", err)
	}

	if err := conn.Export(obj, ObjectPath, InterfaceName); err != nil {
		conn.Close()
		return nil, fmt.Errorf("export player object: %w", err)
	}
	node := &introspect.Node{
		Name: string(ObjectPath),
		Interfaces: []introspect.Interface{
			introspect.IntrospectData,
			{Name: InterfaceName, Methods: introspect.Methods(obj)},
		},
	}
	if err := conn.Export(introspect.NewIntrospectable(node), ObjectPath,
		"org.freedesktop.DBus.Introspectable"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("export introspection: %w", err)
	}

	reply, err := conn.RequestName(BusName, dbus.NameFlagDoNotQueue)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("request bus name: %w", err)
	}
	if reply != dbus.RequestNameReplyPrimaryOwner {
		conn.Close()
		return nil, fmt.Errorf("bus name %s is taken, is rosesong already running?", BusName)
	}
	return conn, nil
}

type handler struct {
	pl *player.Player
}

func (h *handler) send(cmd player.Command) *dbus.Error {
	if err := h.pl.Enqueue(context.Background(), cmd); err != nil {
		return dbus.MakeFailedError(err)
	}
	return nil
}

func (h *handler) TestConnection() *dbus.Error { return nil }

func (h *handler) Play() *dbus.Error { return h.send(player.PlayCmd{}) }

func (h *handler) PlayBvid(bvid string) *dbus.Error {
	return h.send(player.PlayBvidCmd{Bvid: bvid})
}

func (h *handler) Pause() *dbus.Error { return h.send(player.PauseCmd{}) }

func (h *handler) Next() *dbus.Error { return h.send(player.NextCmd{}) }

func (h *handler) Previous() *dbus.Error { return h.send(player.PreviousCmd{}) }

func (h *handler) Stop() *dbus.Error { return h.send(player.StopCmd{}) }

func (h *handler) SetMode(mode string) *dbus.Error {
	m, err := playlist.ParseMode(mode)
	if err != nil {
		return dbus.MakeFailedError(err)
	}
	return h.send(player.SetModeCmd{Mode: m})
}

func (h *handler) PlaylistChange() *dbus.Error {
	return h.send(player.ReloadPlaylistCmd{})
}

func (h *handler) PlaylistIsEmpty() *dbus.Error {
	return h.send(player.PlaylistEmptiedCmd{})
}
