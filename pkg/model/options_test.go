package model

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLabel_Concurrent(t *testing.T) {
	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 200 {
				assert.Equal(t, "Wheelchair Accessible", Label("wheelchair-accessible"))
				assert.Equal(t, "Limited Walking", Label("limited-walking"))
				assert.Equal(t, "Vegan Friendly", Label("vegan-friendly"))
			}
		}()
	}
	wg.Wait()
}
