package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Guilhem-Bonnet/pagebroker/internal/domain"
	"github.com/Guilhem-Bonnet/pagebroker/internal/ports"
)

// GetParam extrait la valeur de key=... dans une référence opaque (url, scheme).
func GetParam(ref, key string) (string, error) {
	parts := strings.SplitN(ref, key+"=", 2)
	if len(parts) < 2 {
		return "", &ports.ParamExtractionError{Key: key, Ref: ref}
	}
	val, _, _ := strings.Cut(parts[1], "&")
	return val, nil
}

// Formats renvoyés par le serveur distant (avec ou sans fuseau).
var remoteTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
}

// ParseRemoteTime interprète une date distante; sans fuseau, elle est lue en UTC.
func ParseRemoteTime(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range remoteTimeLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid remote time %q", raw)
}

// waitFreeFrom convertit chargedAt en timestamp Unix; vide => aucun wait-free.
func waitFreeFrom(chargedAt string) (int64, error) {
	if strings.TrimSpace(chargedAt) == "" {
		return domain.NoWaitFree, nil
	}
	t, err := ParseRemoteTime(chargedAt)
	if err != nil {
		return 0, err
	}
	return t.Unix(), nil
}

var errUnsupportedViewer = errors.New("unsupported single type")

// ContentFromViewer construit le contenu caché à partir de la réponse du viewer.
func ContentFromViewer(info ports.ViewerInfo) (domain.Content, error) {
	content := domain.Content{Title: info.Title, Prev: info.Prev, Next: info.Next}
	switch info.Typename {
	case "ImageViewerData":
		images := make([]domain.Image, 0, len(info.Files))
		for _, file := range info.Files {
			kid, err := GetParam(file.SecureURL, "kid")
			if err != nil {
				return domain.Content{}, err
			}
			images = append(images, domain.Image{Size: file.Size, Kid: kid})
		}
		content.Viewer = domain.Viewer{Kind: domain.ViewerImages, Images: images}
	case "TextViewerData":
		chapters := make([]domain.Chapter, 0, len(info.Contents))
		for _, c := range info.Contents {
			// secureUrl est ici la valeur brute du kid.
			kid, err := GetParam("kid="+c.SecureURL, "kid")
			if err != nil {
				return domain.Content{}, err
			}
			chapters = append(chapters, domain.Chapter{ChapterID: c.ChapterID, ContentID: c.ContentID, Kid: kid})
		}
		content.Viewer = domain.Viewer{Kind: domain.ViewerHTML, Chapters: chapters}
	default:
		return domain.Content{}, fmt.Errorf("%w: %q", errUnsupportedViewer, info.Typename)
	}
	return content, nil
}
