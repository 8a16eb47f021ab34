package depgraph

import (
	"github.com/inful/mdfp"

	"git.home.luguber.info/inful/docxref/internal/frontmatter"
)

// Fingerprint returns the content fingerprint of a source file. Markdown
// front matter and body are hashed as separate parts; files without valid
// front matter hash their whole content as the body.
func Fingerprint(content []byte) string {
	fm, body, had, err := frontmatter.Split(content)
	if err != nil || !had {
		return mdfp.CalculateFingerprintFromParts("", string(content))
	}
	return mdfp.CalculateFingerprintFromParts(string(fm), string(body))
}
