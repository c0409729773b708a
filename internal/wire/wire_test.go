package wire

import "testing"

func TestVidString(t *testing.T) {
	v := Vid{RequestRank: 4, OwnerRank: 2, Sequence: 7}
	got := v.String()
	want := "(4,2,7)"
	if got != want {
		t.Errorf("Vid.String() = %q, want %q", got, want)
	}
}

func TestRouteFieldsStamped(t *testing.T) {
	rf := RouteFields{Master: NoRank, Caller: NoRank}
	if rf.Stamped() {
		t.Error("RouteFields as a client first sends them (Master=NoRank) should not be stamped")
	}
	rf.Master = 0
	if !rf.Stamped() {
		t.Error("RouteFields with Master=0 should be stamped (0 is a valid rank)")
	}
	rf.Master = NoRank
	if rf.Stamped() {
		t.Error("RouteFields with Master=NoRank should not be stamped")
	}
}

func TestPayloadTypesSatisfyInterface(t *testing.T) {
	var payloads = []Payload{
		DmallocMsg{},
		DmallocResponseMsg{},
		ReadMsg{},
		ReadResponseMsg{},
		DwriteMsg{},
		DwriteResponseMsg{},
		DfreeMsg{},
		DfreeResponseMsg{},
		BootstrapMsg{},
		StopMsg{},
		RequestStopMsg{},
	}
	if len(payloads) != 11 {
		t.Fatalf("expected 11 payload types, got %d", len(payloads))
	}
}
