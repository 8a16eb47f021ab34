package frontmatter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplit(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		fm      string
		body    string
		had     bool
		wantErr error
	}{
		{name: "no frontmatter", in: "# Title\n", body: "# Title\n"},
		{name: "lf", in: "---\nuid: a\n---\nBody\n", fm: "uid: a\n", body: "Body\n", had: true},
		{name: "crlf", in: "---\r\nuid: a\r\n---\r\nBody\r\n", fm: "uid: a\r\n", body: "Body\r\n", had: true},
		{name: "empty block", in: "---\n---\nBody", fm: "", body: "Body", had: true},
		{name: "closing at eof", in: "---\nuid: a\n---", fm: "uid: a\n", body: "", had: true},
		{name: "unterminated", in: "---\nuid: a\nBody\n", wantErr: ErrMissingClosingDelimiter},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fm, body, had, err := Split([]byte(tt.in))
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.had, had)
			assert.Equal(t, tt.fm, string(fm))
			assert.Equal(t, tt.body, string(body))
		})
	}
}

func TestMetadataFromFields(t *testing.T) {
	fields, err := ParseYAML([]byte("uid: ' System.String '\ntitle: String class\nmonikers: [net6.0, net8.0]\n"))
	require.NoError(t, err)

	md, err := MetadataFromFields(fields)
	require.NoError(t, err)
	assert.Equal(t, "System.String", md.UID)
	assert.Equal(t, "String class", md.Title)
	assert.Equal(t, []string{"net6.0", "net8.0"}, md.Monikers)
}

func TestMetadataFromFields_CommaSeparatedMonikers(t *testing.T) {
	md, err := MetadataFromFields(map[string]any{"monikers": "v1, v2,,"})
	require.NoError(t, err)
	assert.Equal(t, []string{"v1", "v2"}, md.Monikers)
	assert.Empty(t, md.UID)
}

func TestMetadataFromFields_RejectsNonStringMonikers(t *testing.T) {
	_, err := MetadataFromFields(map[string]any{"monikers": []any{1, 2}})
	require.Error(t, err)
}

func TestParseYAML_Empty(t *testing.T) {
	fields, err := ParseYAML([]byte("  \n"))
	require.NoError(t, err)
	assert.Empty(t, fields)
}
