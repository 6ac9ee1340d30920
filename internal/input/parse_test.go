package input_test

import (
	"testing"

	"github.com/aretw0/tickstory/internal/input"
	"github.com/aretw0/tickstory/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		want    *domain.UserAction
		wantErr bool
	}{
		{name: "Intent Only", line: "hello", want: &domain.UserAction{Intent: "hello"}},
		{
			name: "Typed Entities",
			line: "order  size=3 price=2.5 gift=true city=Lyon",
			want: &domain.UserAction{Intent: "order", Entities: map[string]any{
				"size": int64(3), "price": 2.5, "gift": true, "city": "Lyon",
			}},
		},
		{name: "Empty", line: "   ", wantErr: true},
		{name: "Bad Entity", line: "order size", wantErr: true},
		{name: "Empty Role", line: "order =3", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := input.Parse(tt.line)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
