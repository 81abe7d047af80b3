package assets

import (
	"regexp"
	"strings"

	"github.com/dfryer1193/goplaces/places/domain"
)

const (
	// UploadMarker precedes the transform and identifier segments of every delivery URL.
	UploadMarker = "/image/upload/"

	// DefaultFolder is the application namespace folder identifiers are anchored on.
	DefaultFolder = "cambodia-travel"

	CardTransform = "c_fill,w_400,h_300,f_webp,q_auto"
	HeroTransform = "c_fill,w_1920,h_1080,f_webp,q_auto"
)

// Codec maps media store URLs to identifiers and builds display URLs. It never
// modifies stored references.
type Codec struct {
	folder string
	idRe   *regexp.Regexp
}

// NewCodec returns a codec anchored on the given application folder.
// An empty folder selects DefaultFolder.
func NewCodec(folder string) *Codec {
	folder = strings.Trim(folder, "/")
	if folder == "" {
		folder = DefaultFolder
	}

	// Leading segments (transforms, versions) are skipped lazily so the identifier
	// starts at the first occurrence of the folder.
	pattern := regexp.QuoteMeta(UploadMarker) + `(?:[^/]+/)*?(` + regexp.QuoteMeta(folder) + `/[^.?#]+)`

	return &Codec{
		folder: folder,
		idRe:   regexp.MustCompile(pattern),
	}
}

// Folder returns the namespace folder the codec is anchored on.
func (c *Codec) Folder() string {
	return c.folder
}

// ExtractIdentifier returns the public identifier embedded in ref, without file
// extension. It reports false when ref does not have the expected shape; such
// references are not deletable.
func (c *Codec) ExtractIdentifier(ref domain.ImageReference) (string, bool) {
	matches := c.idRe.FindStringSubmatch(string(ref))
	if len(matches) < 2 {
		return "", false
	}
	return matches[1], true
}

// WithTransform inserts transform right after the upload marker. References without
// the marker, and references that already carry the same transform, are returned unchanged.
func (c *Codec) WithTransform(ref domain.ImageReference, transform string) domain.ImageReference {
	url := string(ref)
	transform = strings.Trim(transform, "/")
	if transform == "" || !strings.Contains(url, UploadMarker) {
		return ref
	}
	if strings.Contains(url, UploadMarker+transform+"/") {
		return ref
	}
	return domain.ImageReference(strings.Replace(url, UploadMarker, UploadMarker+transform+"/", 1))
}
