package query

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/splitleaseteam/splitlease-monorepo-sub000/internal/model"
)

func TestExtractDuration(t *testing.T) {
	tests := []struct {
		query string
		want  *model.Duration
	}{
		{"flexible place for 2 weeks, around $100/night", &model.Duration{Nights: 14, Weeks: 2}},
		{"need it for 4 weeks", &model.Duration{Nights: 28, Weeks: 4}},
		{"10 nights in soho", &model.Duration{Nights: 10, Weeks: 2}},
		{"3 days", &model.Duration{Nights: 3, Weeks: 1}},
		{"1 night", &model.Duration{Nights: 1, Weeks: 1}},
		{"2 months in harlem", &model.Duration{Nights: 60, Weeks: 8}},
		{"3 nights per week", nil},
		{"3 nights per week for 6 weeks", &model.Duration{Nights: 42, Weeks: 6}},
		{"2 days a week", nil},
		{"0 nights", nil},
		{"anywhere", nil},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			assert.Equal(t, tt.want, extractDuration(tt.query))
		})
	}
}
