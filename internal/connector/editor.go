package connector

import (
	"fmt"

	"github.com/golang/glog"

	"github.com/five82/gridsync/internal/editor"
	"github.com/five82/gridsync/internal/protocol"
)

// editorHandler routes editor requests to the server. Bind and save requests
// started by the user are sent as RPCs and stay pending until the server
// confirms them. Cancel needs no confirmation. Requests the server started
// complete at once.
type editorHandler struct {
	c *Connector
}

func (h editorHandler) Bind(r *editor.Request) {
	if h.c.takeServerInitiated() {
		return
	}
	r.StartAsync()
	h.c.awaiting = r
	h.c.server.EditorBind(r.RowIndex())
}

func (h editorHandler) Save(r *editor.Request) {
	if h.c.takeServerInitiated() {
		return
	}
	r.StartAsync()
	h.c.awaiting = r
	h.c.server.EditorSave(r.RowIndex(), h.c.widget.EditorValues())
}

func (h editorHandler) Cancel(r *editor.Request) {
	if h.c.takeServerInitiated() {
		return
	}
	h.c.server.EditorCancel(r.RowIndex())
}

// takeServerInitiated consumes the one-shot flag set before the connector
// applies an editor command from the server. A command that fails before
// reaching the handler leaves the flag set, and the next request consumes
// it instead.
func (c *Connector) takeServerInitiated() bool {
	v := c.serverInitiated
	c.serverInitiated = false
	return v
}

// EditRow opens the editor on row.
func (c *Connector) EditRow(row int) error {
	return c.editor.EditRow(row)
}

// SaveEditor saves the row being edited.
func (c *Connector) SaveEditor() error {
	return c.editor.Save()
}

// CancelEditor closes the editor.
func (c *Connector) CancelEditor() error {
	return c.editor.Cancel()
}

func (c *Connector) serverEditorBind(row int) error {
	c.serverInitiated = true
	if err := c.editor.EditRow(row); err != nil {
		return fmt.Errorf("server editor bind %d: %w", row, err)
	}
	return nil
}

func (c *Connector) serverEditorCancel(row int) error {
	c.serverInitiated = true
	if err := c.editor.Cancel(); err != nil {
		return fmt.Errorf("server editor cancel %d: %w", row, err)
	}
	return nil
}

func (c *Connector) confirm(typ editor.RequestType, p protocol.ConfirmParams) error {
	r := c.awaiting
	if r == nil || r.Type() != typ {
		return fmt.Errorf("confirm %s: %w", typ, ErrNoRequest)
	}
	c.awaiting = nil
	if p.Succeeded {
		return r.Complete()
	}
	glog.V(1).Infof("editor %s on row %d rejected: %s", typ, r.RowIndex(), p.ErrorMessage)
	return r.Fail(&ConfirmError{Message: p.ErrorMessage, ColumnIDs: p.ErrorColumnIDs})
}
