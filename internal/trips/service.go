package trips

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	countrypkg "github.com/daytally/backend/internal/country"
	"github.com/daytally/backend/internal/dates"
)

var (
	errMissingDatabase   = errors.New("database handle is required")
	errMissingIDProvider = errors.New("id provider is required")
	noOpLogger           = zap.NewNop()
)

// ServiceError wraps an operation failure with a stable machine-readable code.
type ServiceError struct {
	code string
	err  error
}

func (e *ServiceError) Error() string {
	if e.err == nil {
		return e.code
	}
	return fmt.Sprintf("%s: %v", e.code, e.err)
}

func (e *ServiceError) Unwrap() error {
	return e.err
}

func (e *ServiceError) Code() string {
	return e.code
}

const (
	opServiceNew = "trips.service.new"
	opList       = "trips.list"
	opCreate     = "trips.create"
	opUpdate     = "trips.update"
	opDelete     = "trips.delete"
	opDeleteMany = "trips.delete_many"
	opImport     = "trips.import"
	opExport     = "trips.export"
)

func newServiceError(operation, reason string, cause error) error {
	code := fmt.Sprintf("%s.%s", operation, reason)
	return &ServiceError{code: code, err: cause}
}

// ServiceConfig carries the dependencies of the trips service.
type ServiceConfig struct {
	Database       *gorm.DB
	Clock          func() time.Time
	IDProvider     IDProvider
	Logger         *zap.Logger
	TrackedCountry string
}

// Service implements the trip operations: listing with derived metrics,
// validated single-record mutations, batch import, and CSV export.
type Service struct {
	db             *gorm.DB
	clock          func() time.Time
	idProvider     IDProvider
	logger         *zap.Logger
	trackedCountry string
}

// NewService validates the configuration and constructs a Service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, newServiceError(opServiceNew, "missing_database", errMissingDatabase)
	}
	if cfg.IDProvider == nil {
		return nil, newServiceError(opServiceNew, "missing_id_provider", errMissingIDProvider)
	}

	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}
	trackedCountry := cfg.TrackedCountry
	if trackedCountry == "" {
		trackedCountry = "BE"
	}

	return &Service{
		db:             cfg.Database,
		clock:          clock,
		idProvider:     cfg.IDProvider,
		logger:         logger,
		trackedCountry: trackedCountry,
	}, nil
}

// TripWithMetrics pairs a persisted trip with its derived metric view.
type TripWithMetrics struct {
	Trip
	Metric TripMetric
}

// List returns the user's trips ordered by date_from then date_to ascending.
func (s *Service) List(ctx context.Context, userID string) ([]Trip, error) {
	if userID == "" {
		return nil, ErrMissingUserID
	}
	trips, err := listTrips(s.db.WithContext(ctx), userID)
	if err != nil {
		s.logError(opList, "query_failed", err, zap.String("user_id", userID))
		return nil, newServiceError(opList, "query_failed", err)
	}
	return trips, nil
}

// ListMetrics returns the user's trips together with metrics derived from
// the full ordered set. Metrics are recomputed on every call.
func (s *Service) ListMetrics(ctx context.Context, userID string) ([]TripWithMetrics, error) {
	trips, err := s.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	metrics := DeriveMetrics(trips, s.trackedCountry)
	result := make([]TripWithMetrics, len(trips))
	for i := range trips {
		result[i] = TripWithMetrics{Trip: trips[i], Metric: metrics[i]}
	}
	return result, nil
}

// Create validates a single new trip and persists it together with its
// country reference row in one transaction.
func (s *Service) Create(ctx context.Context, userID string, input TripInput) (Trip, error) {
	if userID == "" {
		return Trip{}, ErrMissingUserID
	}

	code, dateFrom, dateTo, notes, err := resolveInput(input)
	if err != nil {
		return Trip{}, err
	}

	id, err := s.idProvider.NewID()
	if err != nil {
		s.logError(opCreate, "id_generation_failed", err, zap.String("user_id", userID))
		return Trip{}, newServiceError(opCreate, "id_generation_failed", err)
	}

	trip := Trip{
		ID:          id,
		UserID:      userID,
		CountryCode: code,
		DateFrom:    dateFrom,
		DateTo:      dateTo,
		Notes:       notes,
		CreatedAt:   s.clock().UTC(),
	}

	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := listTrips(tx, userID)
		if err != nil {
			return newServiceError(opCreate, "query_failed", err)
		}
		if conflict := findConflict(dateFrom, dateTo, existing, ""); conflict != nil {
			return &ConflictError{Conflicting: *conflict}
		}
		if err := upsertCountries(tx, []string{code}); err != nil {
			return newServiceError(opCreate, "country_upsert_failed", err)
		}
		if err := tx.Create(&trip).Error; err != nil {
			return newServiceError(opCreate, "insert_failed", err)
		}
		return nil
	})
	if txErr != nil {
		s.logTxError(opCreate, txErr, userID)
		return Trip{}, txErr
	}

	return trip, nil
}

// Update validates and rewrites the mutable fields of an owned trip. The
// trip's own prior record is excluded from the overlap comparison set and
// created_at is never touched.
func (s *Service) Update(ctx context.Context, userID, tripID string, input TripInput) (Trip, error) {
	if userID == "" {
		return Trip{}, ErrMissingUserID
	}

	code, dateFrom, dateTo, notes, err := resolveInput(input)
	if err != nil {
		return Trip{}, err
	}

	var updated Trip
	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing Trip
		err := tx.Where("id = ? AND user_id = ?", tripID, userID).Take(&existing).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrTripNotFound
		}
		if err != nil {
			return newServiceError(opUpdate, "query_failed", err)
		}

		others, err := listTrips(tx, userID)
		if err != nil {
			return newServiceError(opUpdate, "query_failed", err)
		}
		if conflict := findConflict(dateFrom, dateTo, others, tripID); conflict != nil {
			return &ConflictError{Conflicting: *conflict}
		}
		if err := upsertCountries(tx, []string{code}); err != nil {
			return newServiceError(opUpdate, "country_upsert_failed", err)
		}

		updates := map[string]interface{}{
			"country_code": code,
			"date_from":    dateFrom,
			"date_to":      dateTo,
			"notes":        notes,
		}
		if err := tx.Model(&Trip{}).Where("id = ? AND user_id = ?", tripID, userID).Updates(updates).Error; err != nil {
			return newServiceError(opUpdate, "update_failed", err)
		}

		updated = existing
		updated.CountryCode = code
		updated.DateFrom = dateFrom
		updated.DateTo = dateTo
		updated.Notes = notes
		return nil
	})
	if txErr != nil {
		s.logTxError(opUpdate, txErr, userID)
		return Trip{}, txErr
	}

	return updated, nil
}

// Delete removes one owned trip. Deleting a trip the caller does not own
// reports ErrTripNotFound.
func (s *Service) Delete(ctx context.Context, userID, tripID string) error {
	if userID == "" {
		return ErrMissingUserID
	}

	result := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", tripID, userID).Delete(&Trip{})
	if result.Error != nil {
		s.logError(opDelete, "delete_failed", result.Error, zap.String("user_id", userID))
		return newServiceError(opDelete, "delete_failed", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrTripNotFound
	}
	return nil
}

// DeleteMany removes the owned trips among ids in one transaction. Unknown
// or foreign ids are skipped, making retries idempotent.
func (s *Service) DeleteMany(ctx context.Context, userID string, ids []string) error {
	if userID == "" {
		return ErrMissingUserID
	}
	if len(ids) == 0 {
		return nil
	}

	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Where("user_id = ? AND id IN ?", userID, ids).Delete(&Trip{}).Error
	})
	if txErr != nil {
		s.logError(opDeleteMany, "delete_failed", txErr, zap.String("user_id", userID))
		return newServiceError(opDeleteMany, "delete_failed", txErr)
	}
	return nil
}

// Import validates a batch of raw rows and, only when every row is clean,
// inserts all of them in one transaction. On any row error the complete
// error list is returned and nothing is committed — except the idempotent
// country reference upserts, which run for every normalized code so a
// corrected re-upload cannot fail on a missing reference.
func (s *Service) Import(ctx context.Context, userID string, rows []RawRow) ([]Trip, []RowError, error) {
	if userID == "" {
		return nil, nil, ErrMissingUserID
	}

	validRows, codes, rowErrors := validateRows(rows)

	if err := upsertCountries(s.db.WithContext(ctx), codes); err != nil {
		s.logError(opImport, "country_upsert_failed", err, zap.String("user_id", userID))
		return nil, nil, newServiceError(opImport, "country_upsert_failed", err)
	}

	if len(rowErrors) > 0 {
		return nil, rowErrors, nil
	}

	var created []Trip
	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := listTrips(tx, userID)
		if err != nil {
			return newServiceError(opImport, "query_failed", err)
		}

		if conflicts := overlapErrors(validRows, existing); len(conflicts) > 0 {
			rowErrors = conflicts
			return errAbortBatch
		}

		created = make([]Trip, 0, len(validRows))
		for _, row := range validRows {
			id, err := s.idProvider.NewID()
			if err != nil {
				return newServiceError(opImport, "id_generation_failed", err)
			}
			trip := Trip{
				ID:          id,
				UserID:      userID,
				CountryCode: row.countryCode,
				DateFrom:    row.dateFrom,
				DateTo:      row.dateTo,
				Notes:       row.notes,
				CreatedAt:   s.clock().UTC(),
			}
			if err := tx.Create(&trip).Error; err != nil {
				return newServiceError(opImport, "insert_failed", err)
			}
			created = append(created, trip)
		}
		return nil
	})
	if errors.Is(txErr, errAbortBatch) {
		return nil, rowErrors, nil
	}
	if txErr != nil {
		s.logTxError(opImport, txErr, userID)
		return nil, nil, txErr
	}

	return created, nil, nil
}

// ExportCSV renders the user's trips as the canonical CSV document.
func (s *Service) ExportCSV(ctx context.Context, userID string) ([]byte, error) {
	trips, err := s.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	payload, err := WriteCSV(trips)
	if err != nil {
		s.logError(opExport, "encode_failed", err, zap.String("user_id", userID))
		return nil, newServiceError(opExport, "encode_failed", err)
	}
	return payload, nil
}

// errAbortBatch rolls back the import transaction when overlap checking
// found conflicts; the collected row errors are the real result.
var errAbortBatch = errors.New("trips: batch aborted")

// resolveInput normalizes a single interactive submission. The returned
// errors are the caller-facing validation failures, not service faults.
func resolveInput(input TripInput) (string, time.Time, time.Time, string, error) {
	code, err := countrypkg.Normalize(input.Country)
	if err != nil {
		return "", time.Time{}, time.Time{}, "", err
	}
	dateFrom, err := dates.Parse(input.DateFrom)
	if err != nil {
		return "", time.Time{}, time.Time{}, "", err
	}
	dateTo, err := dates.Parse(input.DateTo)
	if err != nil {
		return "", time.Time{}, time.Time{}, "", err
	}
	if dateFrom.After(dateTo) {
		return "", time.Time{}, time.Time{}, "", ErrDateOrder
	}
	return code, dateFrom, dateTo, strings.TrimSpace(input.Notes), nil
}

func listTrips(db *gorm.DB, userID string) ([]Trip, error) {
	var trips []Trip
	err := db.
		Where("user_id = ?", userID).
		Order("date_from ASC, date_to ASC").
		Find(&trips).Error
	if err != nil {
		return nil, err
	}
	return trips, nil
}

// upsertCountries lazily creates reference rows for every code, labelled
// with the code itself until someone curates proper labels.
func upsertCountries(db *gorm.DB, codes []string) error {
	for _, code := range codes {
		record := countrypkg.Country{Code: code, Label: code}
		err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&record).Error
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) logTxError(operation string, err error, userID string) {
	var serviceErr *ServiceError
	if errors.As(err, &serviceErr) {
		s.logError(operation, "transaction_failed", err, zap.String("user_id", userID))
	}
}

func (s *Service) logError(operation, reason string, err error, fields ...zap.Field) {
	attrs := []zap.Field{
		zap.String("operation", operation),
		zap.String("reason", reason),
	}
	if err != nil {
		attrs = append(attrs, zap.Error(err))
	}
	attrs = append(attrs, fields...)
	s.logger.Error("trips service error", attrs...)
}
