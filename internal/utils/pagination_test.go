package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewPaginationParams(t *testing.T) {
	tests := []struct {
		name       string
		page       int
		limit      int
		wantPage   int
		wantLimit  int
		wantOffset int
	}{
		{"defaults", 0, 0, 1, 10, 0},
		{"third page", 3, 20, 3, 20, 40},
		{"limit clamped", 1, 500, 1, 100, 0},
		{"negative page", -2, 5, 1, 5, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPaginationParams(tt.page, tt.limit)
			assert.Equal(t, tt.wantPage, p.Page)
			assert.Equal(t, tt.wantLimit, p.Limit)
			assert.Equal(t, tt.wantOffset, p.Offset)
		})
	}
}

func TestTotalPages(t *testing.T) {
	assert.Equal(t, 0, TotalPages(0, 10))
	assert.Equal(t, 1, TotalPages(10, 10))
	assert.Equal(t, 2, TotalPages(11, 10))
	assert.Equal(t, 0, TotalPages(5, 0))
}

func TestNewPaginationMeta(t *testing.T) {
	meta := NewPaginationMeta(NewPaginationParams(2, 10), 25)
	assert.Equal(t, PaginationMeta{Page: 2, Limit: 10, Total: 25, TotalPages: 3}, meta)
}
