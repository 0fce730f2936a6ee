// Package store persists disease records. Every CreateMany call is atomic:
// either the whole batch is stored or none of it is.
package store

import (
	"errors"
	"fmt"

	"github.com/shandysiswandi/epimap/internal/disease/entity"
)

var errInvalidRecord = errors.New("invalid disease record")

// Record is a stored DiseaseRecord with its storage identity.
type Record = entity.StoredRecord

// pageBounds turns a 1-based page into an offset and limit.
func pageBounds(page, pageSize int) (offset, limit int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 1
	}
	return (page - 1) * pageSize, pageSize
}

func validate(records []entity.DiseaseRecord) error {
	for i, rec := range records {
		switch {
		case rec.DatasetType == "":
			return fmt.Errorf("%w: record %d has no dataset", errInvalidRecord, i)
		case rec.Country == "":
			return fmt.Errorf("%w: record %d has no country", errInvalidRecord, i)
		case rec.Date.IsZero():
			return fmt.Errorf("%w: record %d has no date", errInvalidRecord, i)
		case rec.Cases != nil && *rec.Cases < 0, rec.Deaths != nil && *rec.Deaths < 0:
			return fmt.Errorf("%w: record %d has a negative count", errInvalidRecord, i)
		}
	}
	return nil
}
