package protocol

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestStateDiff_AbsentFieldsStayNil(t *testing.T) {
	var diff StateDiff
	if err := json.Unmarshal([]byte(`{"selectedKeys":[],"frozenColumnCount":2}`), &diff); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if diff.SelectedKeys == nil || len(*diff.SelectedKeys) != 0 {
		t.Fatalf("SelectedKeys = %v, want present and empty", diff.SelectedKeys)
	}
	if diff.FrozenColumnCount == nil || *diff.FrozenColumnCount != 2 {
		t.Fatalf("FrozenColumnCount = %v, want 2", diff.FrozenColumnCount)
	}
	if diff.Columns != nil || diff.SortColumns != nil || diff.EditorEnabled != nil {
		t.Fatalf("absent fields should be nil: %+v", diff)
	}
	if diff.IsEmpty() {
		t.Fatalf("IsEmpty = true for a diff with fields")
	}
	if !(StateDiff{}).IsEmpty() {
		t.Fatalf("IsEmpty = false for zero diff")
	}
}

func TestMerge_AppliesOnlyPresentFields(t *testing.T) {
	base := StateDiff{
		ColumnOrder:   Ptr([]string{"a", "b"}),
		SelectionMode: Ptr(SelectionMulti),
		SelectedKeys:  Ptr([]string{"k1"}),
	}
	diff := StateDiff{
		SelectedKeys:  Ptr([]string{"k2", "k3"}),
		EditorEnabled: Ptr(true),
	}

	got := Merge(base, diff)

	want := StateDiff{
		ColumnOrder:   Ptr([]string{"a", "b"}),
		SelectionMode: Ptr(SelectionMulti),
		SelectedKeys:  Ptr([]string{"k2", "k3"}),
		EditorEnabled: Ptr(true),
	}
	if d := cmp.Diff(want, got); d != "" {
		t.Fatalf("Merge mismatch (-want +got):\n%s", d)
	}

	(*diff.SelectedKeys)[0] = "mutated"
	if (*got.SelectedKeys)[0] != "k2" {
		t.Fatalf("Merge should copy slices")
	}
}

func TestCellState_Content(t *testing.T) {
	tests := []struct {
		cell CellState
		want CellContent
	}{
		{CellState{Type: CellText, Text: "Name"}, TextContent{Text: "Name"}},
		{CellState{Text: "implicit"}, TextContent{Text: "implicit"}},
		{CellState{Type: CellHTML, HTML: "<b>x</b>"}, HTMLContent{HTML: "<b>x</b>"}},
		{CellState{Type: CellWidget, Connector: "42"}, WidgetContent{ConnectorID: "42"}},
	}
	for _, tt := range tests {
		got, err := tt.cell.Content()
		if err != nil {
			t.Fatalf("Content(%+v) returned error: %v", tt.cell, err)
		}
		if got != tt.want {
			t.Fatalf("Content(%+v) = %#v, want %#v", tt.cell, got, tt.want)
		}
	}
	if _, err := (CellState{Type: "IMAGE"}).Content(); err == nil {
		t.Fatalf("Content with unknown type returned nil error")
	}
}

func TestClientMessage_RoundTripParams(t *testing.T) {
	msg, err := NewClientMessage(MethodRequestRows, RequestRowsParams{FirstRow: 10, Count: 5, CachedStart: 3, CachedLength: 7})
	if err != nil {
		t.Fatalf("NewClientMessage: %v", err)
	}
	raw, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var decoded ClientMessage
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	var params RequestRowsParams
	if err := DecodeParams(decoded.Method, decoded.Params, &params); err != nil {
		t.Fatalf("DecodeParams: %v", err)
	}
	if params.FirstRow != 10 || params.Count != 5 || params.CachedLength != 7 {
		t.Fatalf("params = %+v", params)
	}

	if err := DecodeParams("broken", json.RawMessage(`{"count":"x"}`), &params); err == nil {
		t.Fatalf("DecodeParams returned nil error for bad params")
	}
}

func TestRow_WireKeys(t *testing.T) {
	raw := []byte(`{"k":"7","d":{"name":"\"Widget\""},"rs":"odd"}`)
	var row Row
	if err := json.Unmarshal(raw, &row); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if key, ok := RowKey(row); !ok || key != "7" {
		t.Fatalf("RowKey = %q,%v want 7,true", key, ok)
	}
	if row.RowStyle != "odd" {
		t.Fatalf("row = %+v", row)
	}
	if _, ok := RowKey(Row{}); ok {
		t.Fatalf("RowKey on keyless row should report false")
	}
}
