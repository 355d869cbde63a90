package repositories

import (
	"context"
	"fmt"
	"sort"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/evn/grubana/internal/models"
)

const (
	truckLocationsCollection = "truckLocations"
	usersCollection          = "users"
)

// locationDocument mirrors truckLocations/{ownerId}. Timestamps are epoch milliseconds.
type locationDocument struct {
	Visible          bool     `firestore:"visible"`
	IsLive           bool     `firestore:"isLive"`
	LastActive       int64    `firestore:"lastActive"`
	SessionStartTime int64    `firestore:"sessionStartTime"`
	Lat              *float64 `firestore:"lat,omitempty"`
	Lng              *float64 `firestore:"lng,omitempty"`
}

type profileDocument struct {
	BusinessHours map[string]models.DayHours `firestore:"businessHours"`
}

// FirestoreStore is the Store used by the mobile app's own backend.
type FirestoreStore struct {
	client    *firestore.Client
	locations *firestore.CollectionRef
	users     *firestore.CollectionRef
}

func NewFirestoreStore(client *firestore.Client) *FirestoreStore {
	return &FirestoreStore{
		client:    client,
		locations: client.Collection(truckLocationsCollection),
		users:     client.Collection(usersCollection),
	}
}

func toLocationRecord(ownerID string, doc locationDocument) models.TruckLocationRecord {
	return models.TruckLocationRecord{
		OwnerID:          ownerID,
		Visible:          doc.Visible,
		IsLive:           doc.IsLive,
		LastActive:       models.FromUnixMillis(doc.LastActive),
		SessionStartTime: models.FromUnixMillis(doc.SessionStartTime),
		Lat:              doc.Lat,
		Lng:              doc.Lng,
	}
}

func (s *FirestoreStore) GetLocation(ctx context.Context, ownerID string) (*models.TruckLocationRecord, error) {
	snap, err := s.locations.Doc(ownerID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("firestore get location %q: %w", ownerID, err)
	}

	var doc locationDocument
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("firestore get location %q: decode: %w", ownerID, err)
	}
	rec := toLocationRecord(ownerID, doc)
	return &rec, nil
}

// UpsertLocation runs in a transaction: a missing document is created whole with defaults,
// an existing one is merged field by field.
func (s *FirestoreStore) UpsertLocation(ctx context.Context, ownerID string, u models.LocationUpdate) error {
	ref := s.locations.Doc(ownerID)
	fields := locationUpdateFields(u)

	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		_, err := tx.Get(ref)
		if status.Code(err) == codes.NotFound {
			full := map[string]interface{}{
				"visible":          true,
				"isLive":           false,
				"lastActive":       int64(0),
				"sessionStartTime": int64(0),
			}
			for k, v := range fields {
				full[k] = v
			}
			return tx.Set(ref, full)
		}
		if err != nil {
			return err
		}
		if len(fields) == 0 {
			return nil
		}
		return tx.Set(ref, fields, firestore.MergeAll)
	})
	if err != nil {
		return fmt.Errorf("firestore upsert location %q: %w", ownerID, err)
	}
	return nil
}

func locationUpdateFields(u models.LocationUpdate) map[string]interface{} {
	fields := map[string]interface{}{}
	if u.Visible != nil {
		fields["visible"] = *u.Visible
	}
	if u.IsLive != nil {
		fields["isLive"] = *u.IsLive
	}
	if u.LastActive != nil {
		fields["lastActive"] = models.UnixMillis(*u.LastActive)
	}
	if u.SessionStartTime != nil {
		fields["sessionStartTime"] = models.UnixMillis(*u.SessionStartTime)
	}
	if u.Lat != nil {
		fields["lat"] = *u.Lat
	}
	if u.Lng != nil {
		fields["lng"] = *u.Lng
	}
	return fields
}

func (s *FirestoreStore) ExpireSession(ctx context.Context, ownerID string, lastActive, sessionStart time.Time) (bool, error) {
	ref := s.locations.Doc(ownerID)
	var expired bool

	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		expired = false
		snap, err := tx.Get(ref)
		if status.Code(err) == codes.NotFound {
			return nil
		}
		if err != nil {
			return err
		}
		var doc locationDocument
		if err := snap.DataTo(&doc); err != nil {
			return err
		}
		if !doc.IsLive ||
			doc.LastActive != models.UnixMillis(lastActive) ||
			doc.SessionStartTime != models.UnixMillis(sessionStart) {
			return nil
		}
		expired = true
		return tx.Update(ref, []firestore.Update{{Path: "isLive", Value: false}})
	})
	if err != nil {
		return false, fmt.Errorf("firestore expire session %q: %w", ownerID, err)
	}
	return expired, nil
}

func (s *FirestoreStore) ListLocations(ctx context.Context) ([]models.TruckLocationRecord, error) {
	iter := s.locations.Documents(ctx)
	defer iter.Stop()

	var result []models.TruckLocationRecord
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("firestore list locations: %w", err)
		}
		var doc locationDocument
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("firestore list locations: decode %s: %w", snap.Ref.ID, err)
		}
		result = append(result, toLocationRecord(snap.Ref.ID, doc))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].OwnerID < result[j].OwnerID })
	return result, nil
}

func (s *FirestoreStore) GetBusinessHours(ctx context.Context, ownerID string) (models.BusinessHours, error) {
	snap, err := s.users.Doc(ownerID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("firestore get business hours %q: %w", ownerID, err)
	}

	var doc profileDocument
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("firestore get business hours %q: %w: %w", ownerID, ErrMalformedHours, err)
	}
	if len(doc.BusinessHours) == 0 {
		return nil, nil
	}
	return models.BusinessHours(doc.BusinessHours).Normalize(), nil
}

// SetBusinessHours merges into the user document so other profile fields are kept.
func (s *FirestoreStore) SetBusinessHours(ctx context.Context, ownerID string, hours models.BusinessHours) error {
	_, err := s.users.Doc(ownerID).Set(ctx, map[string]interface{}{
		"businessHours": map[string]models.DayHours(hours),
	}, firestore.Merge([]string{"businessHours"}))
	if err != nil {
		return fmt.Errorf("firestore set business hours %q: %w", ownerID, err)
	}
	return nil
}

func (s *FirestoreStore) ListOwnersWithoutBusinessHours(ctx context.Context) ([]string, error) {
	withHours := map[string]bool{}
	seen := map[string]bool{}

	users := s.users.Documents(ctx)
	defer users.Stop()
	for {
		snap, err := users.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("firestore list users: %w", err)
		}
		var doc profileDocument
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("firestore list users: decode %s: %w", snap.Ref.ID, err)
		}
		seen[snap.Ref.ID] = true
		withHours[snap.Ref.ID] = len(doc.BusinessHours) > 0
	}

	trucks, err := s.locations.Select().Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("firestore list truck owners: %w", err)
	}
	for _, snap := range trucks {
		seen[snap.Ref.ID] = true
	}

	var missing []string
	for id := range seen {
		if !withHours[id] {
			missing = append(missing, id)
		}
	}
	sort.Strings(missing)
	return missing, nil
}
