package repository

import (
	"context"

	"go.uber.org/zap"

	"taskboard/internal/domain"
	"taskboard/internal/fault"
	"taskboard/internal/store"
)

// DefaultProjectPageSize is the listing limit when ProjectQuery.Limit is zero.
const DefaultProjectPageSize = 50

var projectFields = []string{
	store.IDField, "name", "description", "start_date", "end_date",
	"status", "tags", "created_on", "modified_on",
}

type ProjectQuery struct {
	Status domain.ProjectStatus
	Limit  int
	Offset int
}

type ProjectRepository struct {
	base
}

func NewProjectRepository(s store.Store, logger *zap.Logger) *ProjectRepository {
	return &ProjectRepository{base: newBase(s, logger, ProjectsTable)}
}

// List returns projects most recently modified first.
func (r *ProjectRepository) List(ctx context.Context, q ProjectQuery) ([]domain.Project, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = DefaultProjectPageSize
	}
	query := store.Query{
		Fields:     projectFields,
		OrderBy:    []store.Order{{FieldName: "modified_on", SortType: store.SortDesc}},
		PagingInfo: &store.Paging{Limit: limit, Offset: q.Offset},
	}
	if q.Status != "" {
		query.Where = append(query.Where, store.Condition{FieldName: "status", Operator: store.OpEqualTo, Values: []any{string(q.Status)}})
	}
	recs, err := r.store.List(ctx, r.table, query)
	if err != nil {
		return nil, wrap(err)
	}
	return decodeAll(r.base, recs, decodeProject), nil
}

func (r *ProjectRepository) Get(ctx context.Context, id int64) (domain.Project, error) {
	rec, err := r.store.Get(ctx, r.table, id)
	if err != nil {
		return domain.Project{}, wrap(err)
	}
	return r.normalize(rec)
}

// Create sends only the fields that carry a value.
func (r *ProjectRepository) Create(ctx context.Context, in domain.ProjectInput) (domain.Project, error) {
	if err := in.Validate(); err != nil {
		return domain.Project{}, err
	}
	if in.Status == "" {
		in.Status = domain.StatusNotStarted
	}
	fields := store.Fields{
		"name":   in.Name,
		"status": string(in.Status),
	}
	if in.Description != "" {
		fields["description"] = in.Description
	}
	if in.StartDate != nil {
		fields["start_date"] = formatTime(*in.StartDate)
	}
	if in.EndDate != nil {
		fields["end_date"] = formatTime(*in.EndDate)
	}
	if tags := domain.JoinTags(in.Tags); tags != "" {
		fields["tags"] = tags
	}
	rec, err := r.store.Create(ctx, r.table, fields)
	if err != nil {
		return domain.Project{}, wrap(err)
	}
	return r.normalize(rec)
}

func (r *ProjectRepository) Update(ctx context.Context, id int64, u domain.ProjectUpdate) (domain.Project, error) {
	if err := u.Validate(); err != nil {
		return domain.Project{}, err
	}
	rec, err := r.store.Update(ctx, r.table, id, projectUpdateFields(u))
	if err != nil {
		return domain.Project{}, wrap(err)
	}
	return r.normalize(rec)
}

func (r *ProjectRepository) Delete(ctx context.Context, id int64) error {
	return wrap(r.store.Delete(ctx, r.table, id))
}

func (r *ProjectRepository) normalize(rec store.Record) (domain.Project, error) {
	p, err := decodeProject(rec)
	if err != nil {
		return domain.Project{}, r.rejectShape(rec, err)
	}
	return p, nil
}

func decodeProject(rec store.Record) (domain.Project, error) {
	d := decoder{rec: rec}
	p := domain.Project{
		ID:          d.id(),
		Name:        d.str("name"),
		Description: d.str("description"),
		StartDate:   d.timePtr("start_date"),
		EndDate:     d.timePtr("end_date"),
		Status:      domain.ProjectStatus(d.str("status")),
		Tags:        domain.ParseTags(d.str("tags")),
		CreatedOn:   d.timestamp("created_on"),
		ModifiedOn:  d.timestamp("modified_on"),
	}
	if d.err != nil {
		return domain.Project{}, d.err
	}
	if p.Status == "" {
		p.Status = domain.StatusNotStarted
	}
	if !p.Status.Valid() {
		return domain.Project{}, fault.Rejectedf("unknown project status %q", p.Status)
	}
	return p, nil
}

func projectUpdateFields(u domain.ProjectUpdate) store.Fields {
	f := store.Fields{}
	if v, ok := u.Name.Value(); ok {
		f["name"] = v
	}
	if u.Description.IsSet() {
		if v, ok := u.Description.Value(); ok {
			f["description"] = v
		} else {
			f["description"] = nil
		}
	}
	if u.StartDate.IsSet() {
		f["start_date"] = timeOrNil(u.StartDate.Ptr())
	}
	if u.EndDate.IsSet() {
		f["end_date"] = timeOrNil(u.EndDate.Ptr())
	}
	if v, ok := u.Status.Value(); ok {
		f["status"] = string(v)
	}
	if u.Tags.IsSet() {
		if v, ok := u.Tags.Value(); ok && len(v) > 0 {
			f["tags"] = domain.JoinTags(v)
		} else {
			f["tags"] = nil
		}
	}
	return f
}
