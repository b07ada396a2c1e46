package insight

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseKind(t *testing.T) {
	t.Parallel()

	for _, k := range Kinds() {
		got, err := ParseKind(k.String())
		require.NoError(t, err)
		assert.Equal(t, k, got)
	}

	_, err := ParseKind("horoscope")
	require.Error(t, err)

	_, err = ParseKind("")
	require.Error(t, err)
}

func TestRequestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		kind    Kind
		req     Request
		wantErr bool
	}{
		{
			name: "valid single phase request",
			kind: KindSubtext,
			req:  Request{Conversation: "hey\nhi"},
		},
		{
			name:    "missing conversation",
			kind:    KindCPS,
			req:     Request{},
			wantErr: true,
		},
		{
			name:    "whitespace only conversation",
			kind:    KindRecon,
			req:     Request{Conversation: "   \n\t"},
			wantErr: true,
		},
		{
			name:    "deep recon without seed",
			kind:    KindDeepRecon,
			req:     Request{Conversation: "hey"},
			wantErr: true,
		},
		{
			name: "deep recon with seed",
			kind: KindDeepRecon,
			req:  Request{Conversation: "hey", ReconSeed: []byte(`{"signals":[]}`)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := tt.req.Validate(tt.kind)
			if tt.wantErr {
				require.Error(t, err)
				var verr *ValidationError
				assert.ErrorAs(t, err, &verr)
				return
			}
			require.NoError(t, err)
		})
	}
}
