package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRecipients(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    []*Recipient
		wantErr error
	}{
		{
			name: "mixed bare and named addresses keep input order",
			raw:  "a@x.com, b@y.com , Name <c@z.com>",
			want: []*Recipient{
				{Email: "a@x.com"},
				{Email: "b@y.com"},
				{Email: "c@z.com", Name: "Name"},
			},
		},
		{
			name: "duplicates are preserved",
			raw:  "a@x.com,a@x.com",
			want: []*Recipient{
				{Email: "a@x.com"},
				{Email: "a@x.com"},
			},
		},
		{
			name: "multi-word display name",
			raw:  "Jane Q. Public <jane@example.org>",
			want: []*Recipient{
				{Email: "jane@example.org", Name: "Jane Q. Public"},
			},
		},
		{
			name: "empty input yields empty list",
			raw:  "",
			want: []*Recipient{},
		},
		{
			name: "whitespace only yields empty list",
			raw:  "   ",
			want: []*Recipient{},
		},
		{
			name:    "malformed address",
			raw:     "a@x.com, nonsense",
			wantErr: ErrInvalidRecipient,
		},
		{
			name:    "angle brackets without address",
			raw:     "Name <>",
			wantErr: ErrInvalidRecipient,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseRecipients(tt.raw)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tt.wantErr))
				return
			}
			require.NoError(t, err)
			require.Len(t, got, len(tt.want))
			for i := range tt.want {
				assert.Equal(t, tt.want[i].Email, got[i].Email)
				assert.Equal(t, tt.want[i].Name, got[i].Name)
			}
		})
	}
}

func TestRecipientAddress(t *testing.T) {
	r := &Recipient{Email: "c@z.com", Name: "Name"}
	assert.Equal(t, "Name <c@z.com>", r.Address())

	bare := &Recipient{Email: "a@x.com"}
	assert.Equal(t, "a@x.com", bare.Address())
}
