package repository

import (
	"sort"
	"strings"

	"github.com/facette/natsort"

	"github.com/camden-git/photoqueue/models"
)

const (
	SortIDAsc       = "id_asc"
	SortFileNameAsc = "filename_asc"
	SortFileNameNat = "filename_nat"
	SortDateDesc    = "date_desc"
	SortDateAsc     = "date_asc"
	SortQRDesc      = "qr_desc"
)

const DefaultSortOrder = SortIDAsc

// IsValidSortOrder checks if a string is a valid sort order constant
func IsValidSortOrder(order string) bool {
	switch order {
	case SortIDAsc, SortFileNameAsc, SortFileNameNat, SortDateDesc, SortDateAsc, SortQRDesc:
		return true
	default:
		return false
	}
}

// SortRecords orders records in place. Ties, and records missing the sort
// key, fall back to id order; unscored records sort last under qr_desc.
func SortRecords(records []models.PhotoRecord, order string) {
	less := func(a, b models.PhotoRecord) bool { return a.ID < b.ID }

	switch order {
	case SortFileNameAsc:
		less = func(a, b models.PhotoRecord) bool {
			if x, y := strings.ToLower(a.FileName), strings.ToLower(b.FileName); x != y {
				return x < y
			}
			return a.ID < b.ID
		}
	case SortFileNameNat:
		less = func(a, b models.PhotoRecord) bool {
			if a.FileName != b.FileName {
				return natsort.Compare(a.FileName, b.FileName)
			}
			return a.ID < b.ID
		}
	case SortDateAsc, SortDateDesc:
		desc := order == SortDateDesc
		less = func(a, b models.PhotoRecord) bool {
			x, y := derefString(a.DateTime), derefString(b.DateTime)
			if x == y {
				return a.ID < b.ID
			}
			if x == "" || y == "" {
				return y == ""
			}
			if desc {
				return x > y
			}
			return x < y
		}
	case SortQRDesc:
		less = func(a, b models.PhotoRecord) bool {
			switch {
			case a.QR == nil && b.QR == nil:
				return a.ID < b.ID
			case a.QR == nil || b.QR == nil:
				return b.QR == nil
			case *a.QR != *b.QR:
				return *a.QR > *b.QR
			}
			return a.ID < b.ID
		}
	}

	sort.SliceStable(records, func(i, j int) bool { return less(records[i], records[j]) })
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
