package reconcile

import (
	"reflect"
	"testing"

	"netneg/internal/model"
)

func TestDiffAdvertisements_EmptyToComponents(t *testing.T) {
	// Empty current, components in desired → all adds
	desired := []model.Component{
		{ID: "netneg:b"},
		{ID: "netneg:a", PreferredVersion: model.Opt(1)},
	}

	diff := DiffAdvertisements(nil, desired)

	if len(diff.ToAdd) != 2 {
		t.Fatalf("ToAdd = %d, want 2", len(diff.ToAdd))
	}
	if diff.ToAdd[0].ID != "netneg:a" || diff.ToAdd[1].ID != "netneg:b" {
		t.Errorf("ToAdd = %v, want sorted by id", diff.ToAdd)
	}
	if len(diff.ToRemove) != 0 {
		t.Errorf("ToRemove = %d, want 0", len(diff.ToRemove))
	}
	if len(diff.ToUpdate) != 0 {
		t.Errorf("ToUpdate = %d, want 0", len(diff.ToUpdate))
	}
}

func TestDiffAdvertisements_ComponentsToEmpty(t *testing.T) {
	current := []model.Component{{ID: "netneg:a"}, {ID: "netneg:b"}}

	diff := DiffAdvertisements(current, []model.Component{})

	if len(diff.ToRemove) != 2 {
		t.Errorf("ToRemove = %d, want 2", len(diff.ToRemove))
	}
	if len(diff.ToAdd) != 0 || len(diff.ToUpdate) != 0 {
		t.Errorf("ToAdd = %d, ToUpdate = %d, want 0, 0", len(diff.ToAdd), len(diff.ToUpdate))
	}
}

func TestDiffAdvertisements_NoChange(t *testing.T) {
	current := []model.Component{
		{ID: "netneg:a", PreferredVersion: model.Opt(2), MinVersion: model.Opt(1)},
		{ID: "netneg:b", Optional: true},
	}
	// Same constraints, different pointers and order
	desired := []model.Component{
		{ID: "netneg:b", Optional: true},
		{ID: "netneg:a", PreferredVersion: model.Opt(2), MinVersion: model.Opt(1)},
	}

	diff := DiffAdvertisements(current, desired)

	if !diff.IsEmpty() {
		t.Errorf("Expected empty diff, got %+v", diff)
	}
}

func TestDiffAdvertisements_MixedOperations(t *testing.T) {
	current := []model.Component{
		{ID: "netneg:keep"},
		{ID: "netneg:drop"},
		{ID: "netneg:bump", PreferredVersion: model.Opt(1)},
	}
	desired := []model.Component{
		{ID: "netneg:keep"},
		{ID: "netneg:bump", PreferredVersion: model.Opt(2)},
		{ID: "netneg:new", Optional: true},
	}

	diff := DiffAdvertisements(current, desired)

	if len(diff.ToAdd) != 1 || diff.ToAdd[0].ID != "netneg:new" {
		t.Errorf("ToAdd = %v, want [netneg:new]", diff.ToAdd)
	}
	if len(diff.ToRemove) != 1 || diff.ToRemove[0].ID != "netneg:drop" {
		t.Errorf("ToRemove = %v, want [netneg:drop]", diff.ToRemove)
	}
	if len(diff.ToUpdate) != 1 {
		t.Fatalf("ToUpdate = %d, want 1", len(diff.ToUpdate))
	}
	u := diff.ToUpdate[0]
	if u.ID != "netneg:bump" || *u.Old.PreferredVersion != 1 || *u.New.PreferredVersion != 2 {
		t.Errorf("ToUpdate[0] = %+v, want netneg:bump 1 → 2", u)
	}
}

func TestEqual(t *testing.T) {
	base := model.Component{ID: "netneg:a", MinVersion: model.Opt(1), MaxVersion: model.Opt(3)}

	tests := []struct {
		name  string
		other model.Component
		want  bool
	}{
		{"identical", model.Component{ID: "netneg:a", MinVersion: model.Opt(1), MaxVersion: model.Opt(3)}, true},
		{"different max", model.Component{ID: "netneg:a", MinVersion: model.Opt(1), MaxVersion: model.Opt(4)}, false},
		{"missing min", model.Component{ID: "netneg:a", MaxVersion: model.Opt(3)}, false},
		{"optional", model.Component{ID: "netneg:a", MinVersion: model.Opt(1), MaxVersion: model.Opt(3), Optional: true}, false},
		{"flow", model.Component{ID: "netneg:a", MinVersion: model.Opt(1), MaxVersion: model.Opt(3), Flow: model.FlowServerbound}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Equal(base, tt.other); got != tt.want {
				t.Errorf("Equal() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAdvertisementDiff_Breaking(t *testing.T) {
	current := []model.Component{
		{ID: "netneg:removed"},
		{ID: "netneg:widened", MinVersion: model.Opt(2), MaxVersion: model.Opt(3)},
		{ID: "netneg:narrowed", MinVersion: model.Opt(1), MaxVersion: model.Opt(5)},
		{ID: "netneg:mandatory", Optional: true},
		{ID: "netneg:versioned"},
		{ID: "netneg:preference", PreferredVersion: model.Opt(2), MinVersion: model.Opt(1), MaxVersion: model.Opt(3)},
	}
	desired := []model.Component{
		{ID: "netneg:widened", MinVersion: model.Opt(1), MaxVersion: model.Opt(4)},
		{ID: "netneg:narrowed", MinVersion: model.Opt(2), MaxVersion: model.Opt(5)},
		{ID: "netneg:mandatory"},
		{ID: "netneg:versioned", PreferredVersion: model.Opt(1)},
		{ID: "netneg:preference", PreferredVersion: model.Opt(3), MinVersion: model.Opt(1), MaxVersion: model.Opt(3)},
		{ID: "netneg:added"},
		{ID: "netneg:added-optional", Optional: true},
	}

	got := DiffAdvertisements(current, desired).Breaking()
	want := []model.ComponentID{
		"netneg:added",
		"netneg:mandatory",
		"netneg:narrowed",
		"netneg:removed",
		"netneg:versioned",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Breaking() = %v, want %v", got, want)
	}
}

func TestAdvertisementDiff_IsEmpty(t *testing.T) {
	tests := []struct {
		name string
		diff AdvertisementDiff
		want bool
	}{
		{"empty", AdvertisementDiff{}, true},
		{"has add", AdvertisementDiff{ToAdd: []model.Component{{ID: "netneg:a"}}}, false},
		{"has remove", AdvertisementDiff{ToRemove: []model.Component{{ID: "netneg:a"}}}, false},
		{"has update", AdvertisementDiff{ToUpdate: []ComponentUpdate{{ID: "netneg:a"}}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.diff.IsEmpty(); got != tt.want {
				t.Errorf("IsEmpty() = %v, want %v", got, tt.want)
			}
		})
	}
}
