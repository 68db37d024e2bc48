package negotiation

import (
	"reflect"
	"testing"

	"netneg/internal/model"
)

const (
	one model.ComponentID = "netneg:one"
	two model.ComponentID = "netneg:two"
)

func comp(id model.ComponentID, pref, lo, hi *int, optional bool) model.Component {
	return model.Component{ID: id, PreferredVersion: pref, MinVersion: lo, MaxVersion: hi, Optional: optional}
}

var v = model.Opt

func TestNegotiate_Structural(t *testing.T) {
	tests := []struct {
		name        string
		server      []model.Component
		client      []model.Component
		wantSuccess bool
		wantCount   int
		wantCodes   map[model.ComponentID]FailureCode
	}{
		{
			name:        "optional client component missing on server is dropped",
			client:      []model.Component{comp(one, nil, nil, nil, true)},
			wantSuccess: true,
		},
		{
			name:        "optional server component missing on client is dropped",
			server:      []model.Component{comp(one, nil, nil, nil, true)},
			wantSuccess: true,
		},
		{
			name:      "mandatory client component missing on server fails",
			client:    []model.Component{comp(one, nil, nil, nil, false)},
			wantCodes: map[model.ComponentID]FailureCode{one: FailureMissingOnServer},
		},
		{
			name:      "mandatory server component missing on client fails",
			server:    []model.Component{comp(one, nil, nil, nil, false)},
			wantCodes: map[model.ComponentID]FailureCode{one: FailureMissingOnClient},
		},
		{
			name:        "optional on one side but present on both is negotiated",
			server:      []model.Component{comp(one, v(1), nil, nil, true)},
			client:      []model.Component{comp(one, v(1), nil, nil, false)},
			wantSuccess: true,
			wantCount:   1,
		},
		{
			name:      "client residuals reported before server residuals",
			server:    []model.Component{comp(one, nil, nil, nil, false)},
			client:    []model.Component{comp(two, nil, nil, nil, false)},
			wantCodes: map[model.ComponentID]FailureCode{two: FailureMissingOnServer},
		},
		{
			name: "every client residual is collected",
			client: []model.Component{
				comp(one, nil, nil, nil, false),
				comp(two, nil, nil, nil, false),
			},
			wantCodes: map[model.ComponentID]FailureCode{
				one: FailureMissingOnServer,
				two: FailureMissingOnServer,
			},
		},
		{
			name:        "both empty",
			wantSuccess: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Negotiate(tt.server, tt.client)

			if result.Success != tt.wantSuccess {
				t.Fatalf("Success = %v, want %v (failures: %v)", result.Success, tt.wantSuccess, result.Err())
			}
			if len(result.Components) != tt.wantCount {
				t.Errorf("len(Components) = %d, want %d", len(result.Components), tt.wantCount)
			}
			if len(result.Failures) != len(tt.wantCodes) {
				t.Fatalf("len(Failures) = %d, want %d", len(result.Failures), len(tt.wantCodes))
			}
			for id, code := range tt.wantCodes {
				f, ok := result.Failures[id]
				if !ok {
					t.Errorf("Failures[%s] missing", id)
					continue
				}
				if f.Code != code {
					t.Errorf("Failures[%s].Code = %s, want %s", id, f.Code, code)
				}
			}
		})
	}
}

func TestNegotiate_Constraints(t *testing.T) {
	tests := []struct {
		name     string
		server   model.Component
		client   model.Component
		wantCode FailureCode
		wantSide Side
	}{
		{
			name:     "server preference below client min",
			server:   comp(one, v(0), nil, nil, false),
			client:   comp(one, v(1), v(1), nil, false),
			wantCode: FailureRangeNoOverlap,
			wantSide: SideClient,
		},
		{
			name:     "server preference above client max",
			server:   comp(one, v(2), nil, nil, false),
			client:   comp(one, v(1), nil, v(1), false),
			wantCode: FailureRangeNoOverlap,
			wantSide: SideClient,
		},
		{
			name:     "server declares nothing, client has min",
			server:   comp(one, nil, nil, nil, false),
			client:   comp(one, v(1), v(1), nil, false),
			wantCode: FailurePreferredVersionRequired,
			wantSide: SideClient,
		},
		{
			name:     "server declares nothing, client has max",
			server:   comp(one, nil, nil, nil, false),
			client:   comp(one, v(1), nil, v(1), false),
			wantCode: FailurePreferredVersionRequired,
			wantSide: SideClient,
		},
		{
			name:     "client preference below server min",
			server:   comp(one, v(1), v(1), nil, false),
			client:   comp(one, v(0), nil, nil, false),
			wantCode: FailureRangeNoOverlap,
			wantSide: SideClient,
		},
		{
			name:     "client preference above server max",
			server:   comp(one, v(1), nil, v(1), false),
			client:   comp(one, v(2), nil, nil, false),
			wantCode: FailureRangeNoOverlap,
			wantSide: SideClient,
		},
		{
			name:     "client declares nothing, server has min",
			server:   comp(one, v(1), v(1), nil, false),
			client:   comp(one, nil, nil, nil, false),
			wantCode: FailurePreferredVersionRequired,
			wantSide: SideClient,
		},
		{
			name:     "client declares nothing, server has max",
			server:   comp(one, v(1), nil, v(1), false),
			client:   comp(one, nil, nil, nil, false),
			wantCode: FailurePreferredVersionRequired,
			wantSide: SideClient,
		},
		{
			name:     "disjoint bounded ranges",
			server:   comp(one, nil, v(1), v(2), false),
			client:   comp(one, nil, v(3), v(4), false),
			wantCode: FailureRangeNoOverlap,
			wantSide: SideClient,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Negotiate([]model.Component{tt.server}, []model.Component{tt.client})

			if result.Success {
				t.Fatalf("Success = true, want false")
			}
			if len(result.Components) != 0 {
				t.Errorf("len(Components) = %d, want 0", len(result.Components))
			}
			f := result.Failures[one]
			if f == nil {
				t.Fatalf("Failures[%s] missing", one)
			}
			if f.Code != tt.wantCode {
				t.Errorf("Code = %s, want %s", f.Code, tt.wantCode)
			}
			if f.Side != tt.wantSide {
				t.Errorf("Side = %s, want %s", f.Side, tt.wantSide)
			}
			if f.Error() == "" {
				t.Error("Error() is empty")
			}
		})
	}
}

func TestNegotiate_VersionResolution(t *testing.T) {
	tests := []struct {
		name    string
		server  model.Component
		client  model.Component
		wantVer *int
	}{
		{
			name:    "server preference wins inside overlap",
			server:  comp(one, v(1), v(1), v(1), false),
			client:  comp(one, v(2), v(1), v(2), false),
			wantVer: v(1),
		},
		{
			name:    "equal point preferences",
			server:  comp(one, v(3), nil, nil, false),
			client:  comp(one, v(3), nil, nil, false),
			wantVer: v(3),
		},
		{
			name:    "client preference when server has none",
			server:  comp(one, nil, v(1), v(3), false),
			client:  comp(one, v(2), nil, nil, false),
			wantVer: v(2),
		},
		{
			name:    "client preference when server preference is outside overlap",
			server:  comp(one, v(5), v(1), v(5), false),
			client:  comp(one, v(2), v(1), v(3), false),
			wantVer: v(2),
		},
		{
			name:    "overlap max when no preference fits",
			server:  comp(one, nil, v(1), v(4), false),
			client:  comp(one, nil, v(2), v(6), false),
			wantVer: v(4),
		},
		{
			name:    "no constraints on either side",
			server:  comp(one, nil, nil, nil, false),
			client:  comp(one, nil, nil, nil, false),
			wantVer: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Negotiate([]model.Component{tt.server}, []model.Component{tt.client})

			if !result.Success {
				t.Fatalf("Success = false, want true: %v", result.Err())
			}
			if len(result.Failures) != 0 {
				t.Errorf("len(Failures) = %d, want 0", len(result.Failures))
			}
			if len(result.Components) != 1 {
				t.Fatalf("len(Components) = %d, want 1", len(result.Components))
			}
			got := result.Components[0]
			if got.ID != one {
				t.Errorf("ID = %s, want %s", got.ID, one)
			}
			if !reflect.DeepEqual(got.Version, tt.wantVer) {
				t.Errorf("Version = %v, want %v", got, model.NegotiatedComponent{ID: one, Version: tt.wantVer})
			}
		})
	}
}

func TestNegotiate_AllOrNothing(t *testing.T) {
	server := []model.Component{
		comp(one, v(1), nil, nil, false),
		comp(two, nil, v(1), v(2), false),
	}
	client := []model.Component{
		comp(one, v(1), nil, nil, false),
		comp(two, nil, v(5), v(6), false),
	}

	result := Negotiate(server, client)

	if result.Success {
		t.Fatal("Success = true, want false")
	}
	if len(result.Components) != 0 {
		t.Errorf("Components = %v, want empty", result.Components)
	}
	if _, ok := result.Failures[one]; ok {
		t.Errorf("Failures[%s] present, want only %s", one, two)
	}
	f := result.Failures[two]
	if f == nil || f.Code != FailureRangeNoOverlap {
		t.Fatalf("Failures[%s] = %v, want range-no-overlap", two, f)
	}
	if f.Range == nil || *f.Range != model.NewRange(1, 2) {
		t.Errorf("Range = %v, want [1,2]", f.Range)
	}
	if f.PeerRange == nil || *f.PeerRange != model.NewRange(5, 6) {
		t.Errorf("PeerRange = %v, want [5,6]", f.PeerRange)
	}
	if result.Err() == nil {
		t.Error("Err() = nil, want error")
	}
}

func TestNegotiate_ServerOrder(t *testing.T) {
	server := []model.Component{comp(two, nil, nil, nil, false), comp(one, nil, nil, nil, false)}
	client := []model.Component{comp(one, nil, nil, nil, false), comp(two, nil, nil, nil, false)}

	result := Negotiate(server, client)

	if !result.Success {
		t.Fatalf("Success = false: %v", result.Err())
	}
	if result.Components[0].ID != two || result.Components[1].ID != one {
		t.Errorf("Components = %v, want server order [%s %s]", result.Components, two, one)
	}
	if !result.Has(one) || !result.Has(two) {
		t.Error("Has() = false for a negotiated component")
	}
	if _, ok := result.Version(one); ok {
		t.Error("Version() ok = true for an unversioned component")
	}
}

func TestNegotiate_DoesNotMutateInputs(t *testing.T) {
	server := []model.Component{
		comp(one, v(2), v(1), v(3), false),
		comp(two, nil, nil, nil, true),
	}
	client := []model.Component{comp(one, v(1), nil, nil, false)}

	serverCopy := append([]model.Component(nil), server...)
	clientCopy := append([]model.Component(nil), client...)

	first := Negotiate(server, client)
	second := Negotiate(server, client)

	if !reflect.DeepEqual(server, serverCopy) {
		t.Errorf("server mutated: %v, want %v", server, serverCopy)
	}
	if !reflect.DeepEqual(client, clientCopy) {
		t.Errorf("client mutated: %v, want %v", client, clientCopy)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("second run = %+v, want %+v", second, first)
	}

	// Mutating the result must not reach the inputs.
	*first.Components[0].Version = 42
	if *server[0].PreferredVersion != 2 || *client[0].PreferredVersion != 1 {
		t.Error("result aliases input version storage")
	}
}

func TestNegotiate_OptionalPruningIsSymmetric(t *testing.T) {
	// Each side is pruned against the other's original list, so an optional
	// component present on both sides survives regardless of which is pruned first.
	server := []model.Component{comp(one, v(1), nil, nil, true), comp(two, nil, nil, nil, true)}
	client := []model.Component{comp(one, v(1), nil, nil, true)}

	result := Negotiate(server, client)
	if !result.Success {
		t.Fatalf("Success = false: %v", result.Err())
	}
	if !result.Has(one) || result.Has(two) {
		t.Errorf("Components = %v, want only %s", result.Components, one)
	}
	if got, ok := result.Version(one); !ok || got != 1 {
		t.Errorf("Version(%s) = %d, %v, want 1, true", one, got, ok)
	}

	swapped := Negotiate(client, server)
	if !swapped.Success || !swapped.Has(one) || swapped.Has(two) {
		t.Errorf("swapped Components = %v, want only %s", swapped.Components, one)
	}
}

func TestValidateComponent(t *testing.T) {
	tests := []struct {
		name     string
		left     model.Component
		right    model.Component
		wantCode FailureCode
	}{
		{"neither constrained", comp(one, nil, nil, nil, false), comp(one, nil, nil, nil, false), ""},
		{"overlapping ranges", comp(one, nil, v(1), v(3), false), comp(one, nil, v(3), v(5), false), ""},
		{"left ranged, right bare", comp(one, nil, v(1), v(3), false), comp(one, nil, nil, nil, false), FailurePreferredVersionRequired},
		{"right ranged, left bare", comp(one, nil, nil, nil, false), comp(one, v(2), nil, nil, false), FailurePreferredVersionRequired},
		{"disjoint", comp(one, v(1), nil, nil, false), comp(one, v(2), nil, nil, false), FailureRangeNoOverlap},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := ValidateComponent(tt.left, tt.right, SideServer)
			if tt.wantCode == "" {
				if f != nil {
					t.Errorf("ValidateComponent() = %v, want nil", f)
				}
				return
			}
			if f == nil {
				t.Fatalf("ValidateComponent() = nil, want %s", tt.wantCode)
			}
			if f.Code != tt.wantCode {
				t.Errorf("Code = %s, want %s", f.Code, tt.wantCode)
			}
			if f.Side != SideServer {
				t.Errorf("Side = %s, want %s", f.Side, SideServer)
			}
		})
	}
}

func TestCheckPreferredOutOfRange(t *testing.T) {
	ranged := comp(one, nil, v(1), v(3), false)
	bare := comp(one, v(7), nil, nil, false)

	f := checkPreferred(ranged, bare, model.NewRange(1, 3), SideClient)
	if f == nil {
		t.Fatal("checkPreferred() = nil, want failure")
	}
	if f.Code != FailurePreferredVersionOutOfRange {
		t.Errorf("Code = %s, want %s", f.Code, FailurePreferredVersionOutOfRange)
	}
	if f.Version == nil || *f.Version != 7 {
		t.Errorf("Version = %v, want 7", f.Version)
	}
	want := "netneg:one: client version 7 is outside the accepted range [1,3]"
	if f.Error() != want {
		t.Errorf("Error() = %q, want %q", f.Error(), want)
	}
}
