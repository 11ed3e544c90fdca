package pkguid

import (
	"sync"
	"testing"
)

func TestGenerateRandomNodeIDRange(t *testing.T) {
	id, err := generateRandomNodeID()
	if err != nil {
		t.Fatalf("generateRandomNodeID: %v", err)
	}
	if id < 0 || id > 1023 {
		t.Fatalf("expected id within 0..1023, got %d", id)
	}
}

func TestSnowflakeGenerateUniqueAndOrdered(t *testing.T) {
	gen, err := NewSnowflake()
	if err != nil {
		t.Fatalf("NewSnowflake: %v", err)
	}
	id1 := gen.Generate()
	id2 := gen.Generate()
	if id1 == id2 {
		t.Fatalf("expected unique ids, got %d and %d", id1, id2)
	}
	if id2 < id1 {
		t.Fatalf("expected increasing ids, got %d then %d", id1, id2)
	}
}

func TestNewSnowflakeConcurrent(t *testing.T) {
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := NewSnowflake(); err != nil {
				t.Errorf("NewSnowflake: %v", err)
			}
		}()
	}
	wg.Wait()
}
