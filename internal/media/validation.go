package media

import (
	"fmt"
	"sort"
	"strings"

	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/gabriel-vasile/mimetype"
)

// Kind is what an uploaded image is attached to.
type Kind string

const (
	KindBanner  Kind = "banner"
	KindProduct Kind = "product"
)

type mimeGroup string

const mimeGroupImages mimeGroup = "images"

var mimeGroupNames = map[mimeGroup]string{
	mimeGroupImages: "PNG, JPEG, WebP, or GIF images",
}

var mimeGroupTypes = map[mimeGroup][]string{
	mimeGroupImages: {"image/png", "image/jpeg", "image/webp", "image/gif"},
}

var allowedMimeGroupsByKind = map[Kind][]mimeGroup{
	KindBanner:  {mimeGroupImages},
	KindProduct: {mimeGroupImages},
}

var mimeTypesByKind = buildMimeTypesByKind()

func buildMimeTypesByKind() map[Kind]map[string]struct{} {
	result := make(map[Kind]map[string]struct{}, len(allowedMimeGroupsByKind))
	for kind, groups := range allowedMimeGroupsByKind {
		set := make(map[string]struct{})
		for _, group := range groups {
			for _, value := range mimeGroupTypes[group] {
				set[value] = struct{}{}
			}
		}
		result[kind] = set
	}
	return result
}

// AllowedTypes lists the accepted mime types for kind, sorted.
func AllowedTypes(kind Kind) []string {
	set := mimeTypesByKind[kind]
	list := make([]string, 0, len(set))
	for value := range set {
		list = append(list, value)
	}
	sort.Strings(list)
	return list
}

func allowedMimeDescription(kind Kind) string {
	var names []string
	for _, group := range allowedMimeGroupsByKind[kind] {
		if name, ok := mimeGroupNames[group]; ok {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return "the approved file types"
	}
	return strings.Join(names, " or ")
}

// ValidateUpload checks size and sniffed content type, and returns the file
// with its ContentType replaced by the detected one. Client-declared types
// are never trusted.
func ValidateUpload(kind Kind, file LocalFile, maxBytes int64) (LocalFile, error) {
	allowed, ok := mimeTypesByKind[kind]
	if !ok {
		return file, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown upload kind %q", kind))
	}
	if len(file.Data) == 0 {
		return file, pkgerrors.New(pkgerrors.CodeValidation, "file is required")
	}
	if maxBytes > 0 && int64(len(file.Data)) > maxBytes {
		return file, pkgerrors.New(pkgerrors.CodePayloadTooLarge, "file is too large").
			WithDetails(map[string]any{"max_bytes": maxBytes, "size": len(file.Data)})
	}

	detected := mimetype.Detect(file.Data)
	mediaType := strings.ToLower(strings.SplitN(detected.String(), ";", 2)[0])
	if _, ok := allowed[mediaType]; !ok {
		return file, pkgerrors.New(pkgerrors.CodeUnsupportedMedia, fmt.Sprintf("%s uploads must be %s", kind, allowedMimeDescription(kind))).
			WithDetails(map[string]any{"detected": mediaType, "allowed": AllowedTypes(kind)})
	}

	file.ContentType = mediaType
	if strings.TrimSpace(file.Name) == "" {
		file.Name = string(kind) + detected.Extension()
	}
	return file, nil
}
