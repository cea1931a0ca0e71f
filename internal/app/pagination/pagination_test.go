package pagination

import (
	"errors"
	"testing"
)

func TestNewAppliesDefaultsAndValidates(t *testing.T) {
	p, err := New(0, 0, 10)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if p.Page != 1 || p.Limit != 10 {
		t.Fatalf("unexpected params: %+v", p)
	}

	if _, err := New(-1, 10, 10); !errors.Is(err, ErrInvalidPage) {
		t.Fatalf("expected ErrInvalidPage, got %v", err)
	}
	if _, err := New(2, -5, 10); !errors.Is(err, ErrInvalidLimit) {
		t.Fatalf("expected ErrInvalidLimit, got %v", err)
	}
}

func TestSliceReturnsRequestedWindow(t *testing.T) {
	items := []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11}

	p, _ := New(2, 5, 10)
	page, info := Slice(items, p)
	if len(page) != 5 || page[0] != 6 || page[4] != 10 {
		t.Fatalf("unexpected page: %v", page)
	}
	if info.Current != 2 || info.Pages != 3 || info.Total != 11 {
		t.Fatalf("unexpected info: %+v", info)
	}
}

func TestSlicePastTheEndIsEmptyNotError(t *testing.T) {
	items := []string{"a", "b", "c"}

	p, _ := New(5, 2, 10)
	page, info := Slice(items, p)
	if len(page) != 0 {
		t.Fatalf("expected empty page, got %v", page)
	}
	if info.Pages != 2 || info.Total != 3 || info.Current != 5 {
		t.Fatalf("unexpected info: %+v", info)
	}
}

func TestInfoWithNoMatches(t *testing.T) {
	p, _ := New(1, 10, 10)
	info := p.Info(0)
	if info.Pages != 0 || info.Total != 0 {
		t.Fatalf("unexpected info: %+v", info)
	}
}
