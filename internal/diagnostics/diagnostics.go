// Package diagnostics logs and records failures that the site swallows.
package diagnostics

import (
	"time"

	"github.com/beshoynasry/estates/internal/model"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Operation names.
const (
	OpList    = "list"
	OpDelete  = "delete"
	OpRefresh = "refresh"
	OpNews    = "news"
)

// Recorder persists diagnostics.
type Recorder interface {
	RecordDiagnostic(d *model.Diagnostic) error
}

// Reporter turns a swallowed error into a log line and a stored record.
// A nil store only logs.
type Reporter struct {
	log   logrus.FieldLogger
	store Recorder
	now   func() time.Time
}

// NewReporter creates a reporter.
func NewReporter(log logrus.FieldLogger, store Recorder) *Reporter {
	return &Reporter{log: log, store: store, now: time.Now}
}

// Report logs err and records it. The returned diagnostic is what was stored.
func (r *Reporter) Report(op string, category model.Category, listingID string, err error) *model.Diagnostic {
	d := &model.Diagnostic{
		ID:        uuid.NewString(),
		Op:        op,
		ListingID: listingID,
		Message:   err.Error(),
		CreatedAt: r.now().UTC(),
	}
	if category.Valid() {
		d.Category = category.Path()
	}

	fields := logrus.Fields{"op": op, "diagnostic_id": d.ID}
	if d.Category != "" {
		fields["category"] = d.Category
	}
	if listingID != "" {
		fields["id"] = listingID
	}
	r.log.WithFields(fields).WithError(err).Error("external call failed")

	if r.store != nil {
		if serr := r.store.RecordDiagnostic(d); serr != nil {
			r.log.WithError(serr).Warn("could not record diagnostic")
		}
	}
	return d
}

// ReportGeneral records a failure that is not tied to a category.
func (r *Reporter) ReportGeneral(op string, err error) *model.Diagnostic {
	return r.Report(op, model.Category(-1), "", err)
}
