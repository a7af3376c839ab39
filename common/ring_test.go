package common

import (
	"reflect"
	"sync"
	"testing"
)

func TestRecent(t *testing.T) {
	r := NewRecent[int](3)
	if got := r.Items(); len(got) != 0 {
		t.Errorf("Expected empty, got %v", got)
	}
	r.Add(1)
	r.Add(2)
	if got := r.Items(); !reflect.DeepEqual(got, []int{1, 2}) {
		t.Errorf("Expected [1 2], got %v", got)
	}
	r.Add(3)
	r.Add(4)
	r.Add(5)
	if got := r.Items(); !reflect.DeepEqual(got, []int{3, 4, 5}) {
		t.Errorf("Expected [3 4 5], got %v", got)
	}
	if r.Len() != 3 {
		t.Errorf("Expected 3, got %d", r.Len())
	}
}

func TestRecentConcurrent(t *testing.T) {
	r := NewRecent[int](10)
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r.Add(i)
			_ = r.Items()
		}(i)
	}
	wg.Wait()
	if r.Len() != 10 {
		t.Errorf("Expected 10, got %d", r.Len())
	}
}
