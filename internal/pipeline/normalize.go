package pipeline

import (
	"bytes"
	"encoding/json"
	"errors"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"

	"github.com/sells-group/venue-ingest/internal/model"
)

var errMissingID = eris.New("pipeline: record has neither publicId nor id")

// Decode parses one raw directory record. A failure is a *NormalizeError.
func Decode(raw json.RawMessage) (*model.ExternalRecord, error) {
	var rec model.ExternalRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, &NormalizeError{Err: eris.Wrap(err, "pipeline: decode record")}
	}
	return &rec, nil
}

// Normalize maps a raw record onto the canonical venue shape. It never
// fails; absent fields take their documented defaults. A result with an
// empty ID is not persistable and is rejected by the batch.
func Normalize(rec *model.ExternalRecord) model.Venue {
	v := model.Venue{
		Category:  model.CategoryUnspecified,
		IsOpen:    true,
		Photos:    []string{},
		MenuItems: []string{},
	}
	if rec == nil {
		return v
	}

	v.ID = recordID(rec)
	v.Name = firstNonEmpty(text(rec.Name), text(rec.DisplayName))
	if rec.NameOnly != nil {
		v.NameTH = text(rec.NameOnly.Thai)
		v.NameEN = text(rec.NameOnly.English)
	}
	if rec.Branch != nil {
		v.Branch = text(rec.Branch.Primary)
	}
	if len(rec.Categories) > 0 {
		if name := text(rec.Categories[0].Name); name != "" {
			v.Category = name
		}
	}
	if rec.PriceRange != nil && rec.PriceRange.Value != nil {
		v.PriceTier = *rec.PriceRange.Value
	}

	switch {
	case rec.Rating != nil:
		v.Rating = *rec.Rating
	case rec.Statistic != nil && rec.Statistic.Rating != nil:
		v.Rating = *rec.Statistic.Rating
	}
	if rec.Statistic != nil && rec.Statistic.NumberOfReviews != nil {
		v.ReviewCount = *rec.Statistic.NumberOfReviews
	}

	v.Latitude = copyFloat(rec.Lat)
	v.Longitude = copyFloat(rec.Lng)

	if c := rec.Contact; c != nil {
		v.Phone = text(c.PhoneNo)
		v.Website = text(c.Homepage)
		if a := c.Address; a != nil {
			v.Address = text(a.Street)
			v.District = namedText(a.District)
			v.City = namedText(a.City)
			v.PostalCode = text(a.PostalCode)
		}
	}

	v.OpeningHours = serializeHours(rec.WorkingHours)
	// Open unless the directory says otherwise.
	if rec.WorkingHoursStatus != nil {
		v.IsOpen = boolOf(rec.WorkingHoursStatus.Open)
	}

	v.Photos = collectPhotos(rec)
	if rec.Menu != nil {
		for _, item := range rec.Menu.Items {
			if name := text(item.Name); name != "" {
				v.MenuItems = append(v.MenuItems, name)
			}
		}
	}

	v.VerifiedInfo = boolOf(rec.VerifiedInfo)
	v.VerifiedLocation = boolOf(rec.VerifiedLocation)
	if rec.Delivery != nil {
		v.DeliveryAvailable = boolOf(rec.Delivery.Available)
	}
	if rec.Pickup != nil {
		v.PickupAvailable = boolOf(rec.Pickup.Available)
	}
	return v
}

// normalizePage decodes and normalizes a page of raw records, dropping
// the ones that cannot be persisted.
func normalizePage(raws []json.RawMessage, log *zap.Logger) ([]model.Venue, int) {
	venues := make([]model.Venue, 0, len(raws))
	skipped := 0
	for i, raw := range raws {
		var nerr *NormalizeError
		rec, err := Decode(raw)
		if err == nil {
			v := Normalize(rec)
			if v.ID != "" {
				venues = append(venues, v)
				continue
			}
			err = &NormalizeError{Err: errMissingID}
		}
		if errors.As(err, &nerr) {
			nerr.Index = i
		}
		skipped++
		log.Warn("pipeline: skipping record", zap.Int("index", i), zap.Error(err))
	}
	return venues, skipped
}

func recordID(rec *model.ExternalRecord) string {
	if id := text(rec.PublicID); id != "" {
		return id
	}
	if rec.ID != nil {
		return strconv.FormatInt(*rec.ID, 10)
	}
	return ""
}

// collectPhotos orders default, main, then listed photos, keeping the
// first occurrence of each URL.
func collectPhotos(rec *model.ExternalRecord) []string {
	photos := []string{}
	seen := make(map[string]struct{})
	add := func(p *model.Photo) {
		if p == nil {
			return
		}
		url := firstNonEmpty(text(p.LargeURL), text(p.SmallURL))
		if url == "" {
			return
		}
		if _, ok := seen[url]; ok {
			return
		}
		seen[url] = struct{}{}
		photos = append(photos, url)
	}

	add(rec.DefaultPhoto)
	add(rec.MainPhoto)
	if rec.Photos != nil {
		for i := range rec.Photos.Entities {
			add(&rec.Photos.Entities[i])
		}
	}
	return photos
}

func serializeHours(raw json.RawMessage) string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return ""
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, trimmed); err != nil {
		return string(trimmed)
	}
	return buf.String()
}

func text(s *string) string {
	if s == nil {
		return ""
	}
	return norm.NFC.String(strings.TrimSpace(*s))
}

func namedText(n *model.Named) string {
	if n == nil {
		return ""
	}
	return text(n.Name)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func boolOf(b *bool) bool {
	return b != nil && *b
}

func copyFloat(f *float64) *float64 {
	if f == nil {
		return nil
	}
	v := *f
	return &v
}
