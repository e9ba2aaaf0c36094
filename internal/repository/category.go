package repository

import (
	"context"

	"go.uber.org/zap"

	"taskboard/internal/domain"
	"taskboard/internal/store"
)

var categoryFields = []string{store.IDField, "name", "color", "icon", "task_count"}

type CategoryRepository struct {
	base
}

func NewCategoryRepository(s store.Store, logger *zap.Logger) *CategoryRepository {
	return &CategoryRepository{base: newBase(s, logger, CategoriesTable)}
}

func (r *CategoryRepository) List(ctx context.Context) ([]domain.Category, error) {
	recs, err := r.store.List(ctx, r.table, store.Query{
		Fields:  categoryFields,
		OrderBy: []store.Order{{FieldName: "name", SortType: store.SortAsc}},
	})
	if err != nil {
		return nil, wrap(err)
	}
	return decodeAll(r.base, recs, decodeCategory), nil
}

func (r *CategoryRepository) Get(ctx context.Context, id int64) (domain.Category, error) {
	rec, err := r.store.Get(ctx, r.table, id)
	if err != nil {
		return domain.Category{}, wrap(err)
	}
	return r.normalize(rec)
}

func (r *CategoryRepository) Create(ctx context.Context, in domain.CategoryInput) (domain.Category, error) {
	if err := in.Validate(); err != nil {
		return domain.Category{}, err
	}
	rec, err := r.store.Create(ctx, r.table, store.Fields{
		"name":       in.Name,
		"color":      in.Color,
		"icon":       in.Icon,
		"task_count": 0,
	})
	if err != nil {
		return domain.Category{}, wrap(err)
	}
	return r.normalize(rec)
}

func (r *CategoryRepository) Update(ctx context.Context, id int64, u domain.CategoryUpdate) (domain.Category, error) {
	if err := u.Validate(); err != nil {
		return domain.Category{}, err
	}
	f := store.Fields{}
	if v, ok := u.Name.Value(); ok {
		f["name"] = v
	}
	if u.Color.IsSet() {
		v, _ := u.Color.Value()
		f["color"] = v
	}
	if u.Icon.IsSet() {
		v, _ := u.Icon.Value()
		f["icon"] = v
	}
	return r.update(ctx, id, f)
}

// UpdateTaskCount stores a recomputed task count for a category.
func (r *CategoryRepository) UpdateTaskCount(ctx context.Context, id int64, count int) (domain.Category, error) {
	return r.update(ctx, id, store.Fields{"task_count": count})
}

func (r *CategoryRepository) Delete(ctx context.Context, id int64) error {
	return wrap(r.store.Delete(ctx, r.table, id))
}

func (r *CategoryRepository) update(ctx context.Context, id int64, f store.Fields) (domain.Category, error) {
	rec, err := r.store.Update(ctx, r.table, id, f)
	if err != nil {
		return domain.Category{}, wrap(err)
	}
	return r.normalize(rec)
}

func (r *CategoryRepository) normalize(rec store.Record) (domain.Category, error) {
	c, err := decodeCategory(rec)
	if err != nil {
		return domain.Category{}, r.rejectShape(rec, err)
	}
	return c, nil
}

func decodeCategory(rec store.Record) (domain.Category, error) {
	d := decoder{rec: rec}
	c := domain.Category{
		ID:        d.id(),
		Name:      d.str("name"),
		Color:     d.str("color"),
		Icon:      d.str("icon"),
		TaskCount: d.integer("task_count"),
	}
	return c, d.err
}
