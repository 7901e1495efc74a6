package protocol

import (
	"encoding/json"
	"fmt"
)

// Client → server methods.
const (
	MethodRequestRows     = "requestRows"
	MethodSetPinned       = "setPinned"
	MethodSelectionChange = "selectionChange"
	MethodSort            = "sort"
	MethodSelectAll       = "selectAll"
	MethodEditorBind      = "editorBind"
	MethodEditorSave      = "editorSave"
	MethodEditorCancel    = "editorCancel"
	MethodClick           = "click"
)

// Server → client methods. The editor methods share names with their client
// counterparts; direction disambiguates them.
const (
	MethodSetRowData       = "setRowData"
	MethodInsertRowData    = "insertRowData"
	MethodRemoveRowData    = "removeRowData"
	MethodResetDataAndSize = "resetDataAndSize"
	MethodScrollToStart    = "scrollToStart"
	MethodScrollToEnd      = "scrollToEnd"
	MethodScrollToRow      = "scrollToRow"
	MethodConfirmBind      = "confirmBind"
	MethodConfirmSave      = "confirmSave"
)

// ClientMessage is a single client call.
type ClientMessage struct {
	Method string          `json:"method"`
	Params json.RawMessage `json:"params,omitempty"`
}

// Invocation is a single server call inside a ServerMessage.
type Invocation struct {
	Method string          `json:"method"`
	Params json.RawMessage `json:"params,omitempty"`
}

// ServerMessage bundles RPC invocations with an optional state diff.
type ServerMessage struct {
	RPC   []Invocation `json:"rpc,omitempty"`
	State *StateDiff   `json:"state,omitempty"`
}

// Row is a data row as sent by the server.
type Row struct {
	Key        string                     `json:"k"`
	Data       map[string]json.RawMessage `json:"d"`
	RowStyle   string                     `json:"rs,omitempty"`
	CellStyles map[string]string          `json:"cs,omitempty"`
}

// RowKey is the datasource.KeyFunc for Row.
func RowKey(r Row) (string, bool) {
	return r.Key, r.Key != ""
}

// RequestRowsParams mirrors requestRows.
type RequestRowsParams struct {
	FirstRow     int `json:"firstRow"`
	Count        int `json:"count"`
	CachedStart  int `json:"cachedStart"`
	CachedLength int `json:"cachedLength"`
}

// SetPinnedParams mirrors setPinned.
type SetPinnedParams struct {
	Key    string `json:"key"`
	Pinned bool   `json:"pinned"`
}

// SelectionChangeParams mirrors selectionChange.
type SelectionChangeParams struct {
	SelectedKeys []string `json:"selectedKeys"`
}

// SortParams mirrors sort.
type SortParams struct {
	ColumnIDs      []string        `json:"columnIds"`
	Directions     []SortDirection `json:"directions"`
	UserOriginated bool            `json:"userOriginated"`
}

// EditorParams mirrors editorBind, editorCancel and editorSave. Values
// carries the editor field contents on save.
type EditorParams struct {
	RowIndex int               `json:"rowIndex"`
	Values   map[string]string `json:"values,omitempty"`
}

// MouseDetails describes the click that triggered a click event.
type MouseDetails struct {
	Button   string `json:"button"`
	Shift    bool   `json:"shift,omitempty"`
	Ctrl     bool   `json:"ctrl,omitempty"`
	Alt      bool   `json:"alt,omitempty"`
	Repeated bool   `json:"repeated,omitempty"`
}

// ClickParams mirrors click.
type ClickParams struct {
	RowKey   string       `json:"rowKey"`
	ColumnID string       `json:"columnId"`
	Details  MouseDetails `json:"details"`
}

// SetRowDataParams mirrors setRowData.
type SetRowDataParams struct {
	FirstRow int   `json:"firstRow"`
	Rows     []Row `json:"rows"`
}

// RowSpanParams mirrors insertRowData and removeRowData.
type RowSpanParams struct {
	FirstRow int `json:"firstRow"`
	Count    int `json:"count"`
}

// ResetParams mirrors resetDataAndSize.
type ResetParams struct {
	Size int `json:"size"`
}

// ScrollDestination says where a scrolled-to row should end up.
type ScrollDestination string

const (
	ScrollAny    ScrollDestination = "ANY"
	ScrollStart  ScrollDestination = "START"
	ScrollMiddle ScrollDestination = "MIDDLE"
	ScrollEnd    ScrollDestination = "END"
)

// ScrollToRowParams mirrors scrollToRow.
type ScrollToRowParams struct {
	Row         int               `json:"row"`
	Destination ScrollDestination `json:"destination"`
}

// ConfirmParams mirrors confirmBind and confirmSave.
type ConfirmParams struct {
	Succeeded      bool     `json:"succeeded"`
	ErrorMessage   string   `json:"errorMessage,omitempty"`
	ErrorColumnIDs []string `json:"errorColumnIds,omitempty"`
}

// NewClientMessage encodes params into a ClientMessage.
func NewClientMessage(method string, params any) (ClientMessage, error) {
	raw, err := encodeParams(params)
	if err != nil {
		return ClientMessage{}, fmt.Errorf("encode %s: %w", method, err)
	}
	return ClientMessage{Method: method, Params: raw}, nil
}

// NewInvocation encodes params into an Invocation.
func NewInvocation(method string, params any) (Invocation, error) {
	raw, err := encodeParams(params)
	if err != nil {
		return Invocation{}, fmt.Errorf("encode %s: %w", method, err)
	}
	return Invocation{Method: method, Params: raw}, nil
}

// MustInvocation is NewInvocation for params that always encode.
func MustInvocation(method string, params any) Invocation {
	inv, err := NewInvocation(method, params)
	if err != nil {
		panic(err)
	}
	return inv
}

// DecodeParams decodes raw params into dest. Empty params leave dest as is.
func DecodeParams(method string, raw json.RawMessage, dest any) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("decode %s params: %w", method, err)
	}
	return nil
}

func encodeParams(params any) (json.RawMessage, error) {
	if params == nil {
		return nil, nil
	}
	return json.Marshal(params)
}
