// Copyright (c) 2026 Mirava. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package pagination_test

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/taibuivan/mirava/pkg/pagination"
)

func TestFromRequest(t *testing.T) {
	testCases := []struct {
		name      string
		url       string
		wantPage  int
		wantLimit int
	}{
		{name: "defaults", url: "/comics", wantPage: 1, wantLimit: 20},
		{name: "explicit values", url: "/comics?page=3&limit=50", wantPage: 3, wantLimit: 50},
		{name: "zero page clamps", url: "/comics?page=0", wantPage: 1, wantLimit: 20},
		{name: "negative limit clamps", url: "/comics?limit=-5", wantPage: 1, wantLimit: 20},
		{name: "excessive limit clamps", url: "/comics?limit=5000", wantPage: 1, wantLimit: 20},
		{name: "garbage ignored", url: "/comics?page=abc&limit=xyz", wantPage: 1, wantLimit: 20},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			request := httptest.NewRequest("GET", testCase.url, nil)
			params := pagination.FromRequest(request)

			assert.Equal(t, testCase.wantPage, params.Page)
			assert.Equal(t, testCase.wantLimit, params.Limit)
		})
	}
}

func TestParamsOffset(t *testing.T) {
	assert.Equal(t, 0, pagination.Params{Page: 1, Limit: 20}.Offset())
	assert.Equal(t, 40, pagination.Params{Page: 3, Limit: 20}.Offset())
	assert.Equal(t, 0, pagination.Params{Page: 0, Limit: 20}.Offset())
}

func TestNewMeta(t *testing.T) {
	meta := pagination.NewMeta(2, 20, 45)
	assert.Equal(t, 3, meta.TotalPages)
	assert.Equal(t, 45, meta.Total)

	empty := pagination.NewMeta(1, 20, 0)
	assert.Equal(t, 0, empty.TotalPages)
}
