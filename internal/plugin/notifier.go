package plugin

import (
	"context"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"
)

// ErrEventNotHandled is returned when the selected plugin does not
// subscribe to the event being sent.
var ErrEventNotHandled = errors.New("plugin does not handle event")

// Runner executes a plugin request. *Executor implements it.
type Runner interface {
	Execute(ctx context.Context, plugin *Plugin, req *Request) (*Response, error)
}

// Notifier delivers alert requests to a named plugin.
type Notifier struct {
	manager *Manager
	runner  Runner
}

// NewNotifier creates a Notifier resolving plugins through manager.
func NewNotifier(manager *Manager, runner Runner) *Notifier {
	return &Notifier{manager: manager, runner: runner}
}

// Notify sends req to the plugin called name. A response with
// success=false is returned as an error.
func (n *Notifier) Notify(ctx context.Context, name string, req *Request) error {
	p, err := n.manager.Get(name)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	if !p.Handles(req.Event) {
		return fmt.Errorf("%s: %s: %w", name, req.Event, ErrEventNotHandled)
	}

	resp, err := n.runner.Execute(ctx, p, req)
	if err != nil {
		return err
	}
	if !resp.Success {
		return fmt.Errorf("plugin %s reported failure: %s", name, resp.Error)
	}

	log.WithFields(log.Fields{
		"plugin": name,
		"event":  req.Event,
		"score":  req.Score,
	}).Info("alert delivered")
	return nil
}
