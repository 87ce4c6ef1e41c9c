package control

import (
	"sync"

	"github.com/godbus/dbus/v5"
)

// TempServer stands in for the real surface while the playlist is empty.
// It answers the liveness probe and turns PlaylistChange or Stop into a
// single wake-up, after which the daemon re-checks the playlist file.
type TempServer struct {
	conn  *dbus.Conn
	woken chan struct{}
	once  sync.Once
}

func NewTempServer() (*TempServer, error) {
	t := &TempServer{woken: make(chan struct{})}
	conn, err := serve(&tempHandler{t: t})
	if err != nil {
		return nil, err
	}
	t.conn = conn
	return t, nil
}

// Woken is closed when the editing client reports a playlist change or
// asks the daemon to stop.
func (t *TempServer) Woken() <-chan struct{} { return t.woken }

func (t *TempServer) Close() error { return t.conn.Close() }

func (t *TempServer) wake() {
	t.once.Do(func() { close(t.woken) })
}

type tempHandler struct {
	t *TempServer
}

func (h *tempHandler) TestConnection() *dbus.Error { return nil }

func (h *tempHandler) PlaylistChange() *dbus.Error {
	h.t.wake()
	return nil
}

func (h *tempHandler) Stop() *dbus.Error {
	h.t.wake()
	return nil
}
