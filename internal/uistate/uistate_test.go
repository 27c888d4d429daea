package uistate

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStore(t *testing.T) {
	s := New()
	assert.Equal(t, State{}, s.State())

	s.SetCurrentPage("docs/README.md")
	s.ToggleSidebar()
	assert.Equal(t, State{CurrentPage: "docs/README.md", SidebarCollapsed: true}, s.State())

	s.SetCurrentPage("")
	s.ToggleSidebar()
	assert.Equal(t, State{}, s.State())
}

func TestToggleFromManyGoroutines(t *testing.T) {
	s := New()
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.ToggleSidebar()
		}()
	}
	wg.Wait()
	assert.False(t, s.State().SidebarCollapsed, "an even number of toggles cancels out")
}
