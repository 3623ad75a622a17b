package plugin

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRunner struct {
	resp *Response
	err  error
	got  []*Request
}

func (f *fakeRunner) Execute(ctx context.Context, p *Plugin, req *Request) (*Response, error) {
	f.got = append(f.got, req)
	return f.resp, f.err
}

func newTestNotifier(t *testing.T, runner Runner) *Notifier {
	t.Helper()

	dir := t.TempDir()
	writeManifest(t, dir, Manifest{Name: "notify", Version: "1.0.0", Executable: "notify", Events: []string{"poor_posture"}})
	manager := NewManager(dir)
	require.NoError(t, manager.Discover())
	return NewNotifier(manager, runner)
}

func TestNotifier_Notify(t *testing.T) {
	t.Run("delivers to the named plugin", func(t *testing.T) {
		runner := &fakeRunner{resp: &Response{Success: true}}
		n := newTestNotifier(t, runner)

		req := &Request{Event: "poor_posture", Score: 30}
		require.NoError(t, n.Notify(context.Background(), "notify", req))
		require.Len(t, runner.got, 1)
		assert.Same(t, req, runner.got[0])
	})

	t.Run("unknown plugin", func(t *testing.T) {
		n := newTestNotifier(t, &fakeRunner{})

		err := n.Notify(context.Background(), "missing", &Request{Event: "poor_posture"})
		assert.ErrorIs(t, err, ErrPluginNotFound)
	})

	t.Run("unsubscribed event is not sent", func(t *testing.T) {
		runner := &fakeRunner{resp: &Response{Success: true}}
		n := newTestNotifier(t, runner)

		err := n.Notify(context.Background(), "notify", &Request{Event: "recovery"})
		assert.ErrorIs(t, err, ErrEventNotHandled)
		assert.Empty(t, runner.got)
	})

	t.Run("failure response becomes an error", func(t *testing.T) {
		n := newTestNotifier(t, &fakeRunner{resp: &Response{Success: false, Error: "no display"}})

		err := n.Notify(context.Background(), "notify", &Request{Event: "poor_posture"})
		assert.ErrorContains(t, err, "no display")
	})

	t.Run("runner error is returned", func(t *testing.T) {
		boom := errors.New("boom")
		n := newTestNotifier(t, &fakeRunner{err: boom})

		err := n.Notify(context.Background(), "notify", &Request{Event: "poor_posture"})
		assert.ErrorIs(t, err, boom)
	})
}
