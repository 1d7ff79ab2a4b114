// Package mongostore implements the repository interfaces on MongoDB. Email and
// agency-name uniqueness come from unique indexes created by EnsureIndexes, and
// status changes are a filtered single-document update.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/civicdesk/complaints-service/internal/domain"
	"github.com/civicdesk/complaints-service/internal/repository"
)

const (
	usersCollection      = "users"
	agenciesCollection   = "agencies"
	complaintsCollection = "complaints"
	historyCollection    = "complaint_history"
	responsesCollection  = "complaint_responses"
)

// New wires every repository onto db.
func New(db *mongo.Database) *repository.Store {
	return &repository.Store{
		Users:      &userRepo{coll: db.Collection(usersCollection)},
		Agencies:   &agencyRepo{coll: db.Collection(agenciesCollection)},
		Complaints: &complaintRepo{coll: db.Collection(complaintsCollection)},
		History:    &historyRepo{coll: db.Collection(historyCollection)},
		Responses:  &responseRepo{coll: db.Collection(responsesCollection)},
	}
}

// EnsureIndexes creates the unique and ordering indexes. It is safe to call on every start.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	caseInsensitive := &options.Collation{Locale: "en", Strength: 2}
	specs := map[string][]mongo.IndexModel{
		usersCollection: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true).SetName("users_email_key")},
			{Keys: bson.D{{Key: "role", Value: 1}}},
		},
		agenciesCollection: {
			{Keys: bson.D{{Key: "name", Value: 1}}, Options: options.Index().SetUnique(true).SetCollation(caseInsensitive).SetName("agencies_name_key")},
			{Keys: bson.D{{Key: "admin_id", Value: 1}}},
		},
		complaintsCollection: {
			{Keys: bson.D{{Key: "submitter_id", Value: 1}}},
			{Keys: bson.D{{Key: "agency_id", Value: 1}}},
			{Keys: bson.D{{Key: "updated_at", Value: -1}, {Key: "created_at", Value: -1}, {Key: "_id", Value: 1}}},
		},
		historyCollection: {
			{Keys: bson.D{{Key: "complaint_id", Value: 1}, {Key: "created_at", Value: 1}}},
		},
		responsesCollection: {
			{Keys: bson.D{{Key: "complaint_id", Value: 1}, {Key: "created_at", Value: 1}}},
		},
	}
	for name, models := range specs {
		if _, err := db.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("create indexes on %s: %w", name, err)
		}
	}
	return nil
}

func mapMongoError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return repository.ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return repository.ErrDuplicate
	default:
		return err
	}
}

type userRepo struct{ coll *mongo.Collection }

func (r *userRepo) Create(ctx context.Context, user *domain.User) error {
	_, err := r.coll.InsertOne(ctx, newUserDocument(user))
	return mapMongoError(err)
}

func (r *userRepo) Update(ctx context.Context, user *domain.User) error {
	res, err := r.coll.ReplaceOne(ctx, bson.M{"_id": user.ID}, newUserDocument(user))
	if err != nil {
		return mapMongoError(err)
	}
	if res.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *userRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *userRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *userRepo) findOne(ctx context.Context, filter bson.M) (*domain.User, error) {
	var doc userDocument
	if err := r.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		return nil, mapMongoError(err)
	}
	user := doc.toDomain()
	return &user, nil
}

func (r *userRepo) List(ctx context.Context, filter repository.UserFilter) ([]domain.User, error) {
	query := bson.M{}
	if filter.Role != nil {
		query["role"] = string(*filter.Role)
	}
	if filter.Active != nil {
		query["active"] = *filter.Active
	}
	if term := strings.TrimSpace(filter.Search); term != "" {
		pattern := containsPattern(term)
		query["$or"] = bson.A{bson.M{"full_name": pattern}, bson.M{"email": pattern}}
	}
	limit, offset := repository.NormalizeWindow(filter.Limit, filter.Offset)
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: 1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))

	var docs []userDocument
	if err := findAll(ctx, r.coll, query, opts, &docs); err != nil {
		return nil, err
	}
	out := make([]domain.User, len(docs))
	for i, doc := range docs {
		out[i] = doc.toDomain()
	}
	return out, nil
}

type agencyRepo struct{ coll *mongo.Collection }

func (r *agencyRepo) Create(ctx context.Context, agency *domain.Agency) error {
	_, err := r.coll.InsertOne(ctx, newAgencyDocument(agency))
	return mapMongoError(err)
}

func (r *agencyRepo) Update(ctx context.Context, agency *domain.Agency) error {
	res, err := r.coll.ReplaceOne(ctx, bson.M{"_id": agency.ID}, newAgencyDocument(agency))
	if err != nil {
		return mapMongoError(err)
	}
	if res.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *agencyRepo) GetByID(ctx context.Context, id string) (*domain.Agency, error) {
	return r.findOne(ctx, bson.M{"_id": id}, nil)
}

func (r *agencyRepo) GetByAdmin(ctx context.Context, adminID string) (*domain.Agency, error) {
	return r.findOne(ctx, bson.M{"admin_id": adminID}, options.FindOne().SetSort(bson.D{{Key: "created_at", Value: 1}}))
}

func (r *agencyRepo) findOne(ctx context.Context, filter bson.M, opts *options.FindOneOptions) (*domain.Agency, error) {
	var doc agencyDocument
	findOpts := []*options.FindOneOptions{}
	if opts != nil {
		findOpts = append(findOpts, opts)
	}
	if err := r.coll.FindOne(ctx, filter, findOpts...).Decode(&doc); err != nil {
		return nil, mapMongoError(err)
	}
	agency := doc.toDomain()
	return &agency, nil
}

func (r *agencyRepo) List(ctx context.Context) ([]domain.Agency, error) {
	var docs []agencyDocument
	if err := findAll(ctx, r.coll, bson.M{}, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}), &docs); err != nil {
		return nil, err
	}
	out := make([]domain.Agency, len(docs))
	for i, doc := range docs {
		out[i] = doc.toDomain()
	}
	return out, nil
}

type complaintRepo struct{ coll *mongo.Collection }

func (r *complaintRepo) Create(ctx context.Context, complaint *domain.Complaint) error {
	_, err := r.coll.InsertOne(ctx, newComplaintDocument(complaint))
	return mapMongoError(err)
}

func (r *complaintRepo) GetByID(ctx context.Context, id string) (*domain.Complaint, error) {
	var doc complaintDocument
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		return nil, mapMongoError(err)
	}
	complaint := doc.toDomain()
	return &complaint, nil
}

// UpdateStatus matches on the expected status so the read-verify-write of a
// transition is one atomic document update.
func (r *complaintRepo) UpdateStatus(ctx context.Context, id string, change repository.StatusChange) (*domain.Complaint, error) {
	set := bson.D{
		{Key: "status", Value: string(change.To)},
		{Key: "updated_at", Value: change.UpdatedAt},
	}
	if change.ResolvedAt != nil {
		set = append(set, bson.E{Key: "resolved_at", Value: bson.D{
			{Key: "$ifNull", Value: bson.A{"$resolved_at", *change.ResolvedAt}},
		}})
	}
	pipeline := mongo.Pipeline{{{Key: "$set", Value: set}}}

	var doc complaintDocument
	err := r.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "status": string(change.From)},
		pipeline,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		count, countErr := r.coll.CountDocuments(ctx, bson.M{"_id": id})
		if countErr != nil {
			return nil, countErr
		}
		if count == 0 {
			return nil, repository.ErrNotFound
		}
		return nil, repository.ErrStaleStatus
	}
	if err != nil {
		return nil, mapMongoError(err)
	}
	complaint := doc.toDomain()
	return &complaint, nil
}

func (r *complaintRepo) UpdateAgency(ctx context.Context, id string, agencyID *string, updatedAt time.Time) (*domain.Complaint, error) {
	var doc complaintDocument
	err := r.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"agency_id": agencyID, "updated_at": updatedAt}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		return nil, mapMongoError(err)
	}
	complaint := doc.toDomain()
	return &complaint, nil
}

func (r *complaintRepo) List(ctx context.Context, filter repository.ComplaintFilter) ([]domain.Complaint, error) {
	limit, offset := filter.NormalizedWindow()
	opts := options.Find().
		SetSort(bson.D{{Key: "updated_at", Value: -1}, {Key: "created_at", Value: -1}, {Key: "_id", Value: 1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))

	var docs []complaintDocument
	if err := findAll(ctx, r.coll, complaintQuery(filter), opts, &docs); err != nil {
		return nil, err
	}
	out := make([]domain.Complaint, len(docs))
	for i, doc := range docs {
		out[i] = doc.toDomain()
	}
	return out, nil
}

func (r *complaintRepo) Count(ctx context.Context, filter repository.ComplaintFilter) (int, error) {
	total, err := r.coll.CountDocuments(ctx, complaintQuery(filter))
	return int(total), err
}

func complaintQuery(filter repository.ComplaintFilter) bson.M {
	query := bson.M{}
	if filter.SubmitterID != nil {
		query["submitter_id"] = *filter.SubmitterID
	}
	if filter.AgencyID != nil {
		query["agency_id"] = *filter.AgencyID
	}
	if len(filter.Statuses) > 0 {
		statuses := make(bson.A, len(filter.Statuses))
		for i, s := range filter.Statuses {
			statuses[i] = string(s)
		}
		query["status"] = bson.M{"$in": statuses}
	}
	if filter.Category != nil {
		query["category"] = string(*filter.Category)
	}
	if term := strings.TrimSpace(filter.SearchTerm); term != "" {
		pattern := containsPattern(term)
		query["$or"] = bson.A{bson.M{"title": pattern}, bson.M{"description": pattern}}
	}
	return query
}

type historyRepo struct{ coll *mongo.Collection }

func (r *historyRepo) Create(ctx context.Context, entry *domain.ComplaintHistory) error {
	_, err := r.coll.InsertOne(ctx, historyDocument{
		ID:          entry.ID,
		ComplaintID: entry.ComplaintID,
		ActorID:     entry.ActorID,
		ActorRole:   string(entry.ActorRole),
		ChangeType:  string(entry.ChangeType),
		OldValue:    entry.OldValue,
		NewValue:    entry.NewValue,
		Note:        entry.Note,
		CreatedAt:   entry.CreatedAt,
	})
	return mapMongoError(err)
}

func (r *historyRepo) ListByComplaint(ctx context.Context, complaintID string) ([]domain.ComplaintHistory, error) {
	var docs []historyDocument
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	if err := findAll(ctx, r.coll, bson.M{"complaint_id": complaintID}, opts, &docs); err != nil {
		return nil, err
	}
	out := make([]domain.ComplaintHistory, len(docs))
	for i, d := range docs {
		out[i] = domain.ComplaintHistory{
			ID:          d.ID,
			ComplaintID: d.ComplaintID,
			ActorID:     d.ActorID,
			ActorRole:   domain.Role(d.ActorRole),
			ChangeType:  domain.ComplaintChangeType(d.ChangeType),
			OldValue:    d.OldValue,
			NewValue:    d.NewValue,
			Note:        d.Note,
			CreatedAt:   d.CreatedAt.UTC(),
		}
	}
	return out, nil
}

type responseRepo struct{ coll *mongo.Collection }

func (r *responseRepo) Create(ctx context.Context, response *domain.ComplaintResponse) error {
	_, err := r.coll.InsertOne(ctx, responseDocument{
		ID:          response.ID,
		ComplaintID: response.ComplaintID,
		AuthorID:    response.AuthorID,
		AuthorRole:  string(response.AuthorRole),
		Message:     response.Message,
		CreatedAt:   response.CreatedAt,
	})
	return mapMongoError(err)
}

func (r *responseRepo) ListByComplaint(ctx context.Context, complaintID string) ([]domain.ComplaintResponse, error) {
	var docs []responseDocument
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	if err := findAll(ctx, r.coll, bson.M{"complaint_id": complaintID}, opts, &docs); err != nil {
		return nil, err
	}
	out := make([]domain.ComplaintResponse, len(docs))
	for i, d := range docs {
		out[i] = domain.ComplaintResponse{
			ID:          d.ID,
			ComplaintID: d.ComplaintID,
			AuthorID:    d.AuthorID,
			AuthorRole:  domain.Role(d.AuthorRole),
			Message:     d.Message,
			CreatedAt:   d.CreatedAt.UTC(),
		}
	}
	return out, nil
}

func findAll(ctx context.Context, coll *mongo.Collection, filter any, opts *options.FindOptions, out any) error {
	cursor, err := coll.Find(ctx, filter, opts)
	if err != nil {
		return err
	}
	defer cursor.Close(ctx)
	return cursor.All(ctx, out)
}

func containsPattern(term string) bson.M {
	return bson.M{"$regex": regexp.QuoteMeta(term), "$options": "i"}
}
