package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/casahub/casahub/internal/domain/listing"
	"github.com/casahub/casahub/internal/observability"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ListingsRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewListingsRepo(pool *pgxpool.Pool, prom *observability.Prom) *ListingsRepo {
	return &ListingsRepo{
		pool: pool,
		prom: prom,
	}
}

func (r *ListingsRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveDB(op, fn)
	}
	return fn()
}

const listingColumns = `id, name, description, address, type, parking, furnished, offer,
	bedrooms, bathrooms, regular_price, discount_price, image_urls, owner_id, created_at, updated_at`

func scanListing(row pgx.Row) (listing.Listing, error) {
	var l listing.Listing

	err := row.Scan(
		&l.ID,
		&l.Name,
		&l.Description,
		&l.Address,
		&l.Type,
		&l.Parking,
		&l.Furnished,
		&l.Offer,
		&l.Bedrooms,
		&l.Bathrooms,
		&l.RegularPrice,
		&l.DiscountPrice,
		&l.ImageURLs,
		&l.OwnerID,
		&l.CreatedAt,
		&l.UpdatedAt,
	)

	return l, err
}

func (r *ListingsRepo) Create(ctx context.Context, ownerID string, req listing.CreateRequest) (listing.Listing, error) {
	now := time.Now().UTC()

	l := listing.Listing{
		ID:            uuid.NewString(),
		Name:          req.Name,
		Description:   req.Description,
		Address:       req.Address,
		Type:          req.Type,
		Parking:       req.Parking,
		Furnished:     req.Furnished,
		Offer:         req.Offer,
		Bedrooms:      req.Bedrooms,
		Bathrooms:     req.Bathrooms,
		RegularPrice:  req.RegularPrice,
		DiscountPrice: req.DiscountPrice,
		ImageURLs:     req.ImageURLs,
		OwnerID:       ownerID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	err := r.observe("listings.create", func() error {
		_, err := r.pool.Exec(ctx,
			`INSERT INTO listings (`+listingColumns+`)
			 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)`,
			l.ID, l.Name, l.Description, l.Address, l.Type, l.Parking, l.Furnished, l.Offer,
			l.Bedrooms, l.Bathrooms, l.RegularPrice, l.DiscountPrice, l.ImageURLs, l.OwnerID,
			l.CreatedAt, l.UpdatedAt,
		)
		return err
	})

	if err != nil {
		return listing.Listing{}, err
	}

	return l, nil
}

func (r *ListingsRepo) GetByID(ctx context.Context, id string) (listing.Listing, error) {
	var l listing.Listing

	err := r.observe("listings.get_by_id", func() error {
		var err error
		l, err = scanListing(r.pool.QueryRow(ctx,
			`SELECT `+listingColumns+` FROM listings WHERE id = $1`, id))
		return err
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return listing.Listing{}, listing.ErrNotFound
		}

		return listing.Listing{}, err
	}

	return l, nil
}

func (r *ListingsRepo) ListByOwner(ctx context.Context, ownerID string) ([]listing.Listing, error) {
	out := make([]listing.Listing, 0)

	err := r.observe("listings.list_by_owner", func() error {
		rows, err := r.pool.Query(ctx,
			`SELECT `+listingColumns+` FROM listings WHERE owner_id = $1 ORDER BY created_at DESC, id`,
			ownerID,
		)

		if err != nil {
			return err
		}

		defer rows.Close()

		for rows.Next() {
			l, err := scanListing(rows)

			if err != nil {
				return err
			}

			out = append(out, l)
		}

		return rows.Err()
	})

	if err != nil {
		return nil, err
	}

	return out, nil
}

func (r *ListingsRepo) Search(ctx context.Context, filter listing.SearchFilter) ([]listing.Listing, error) {
	var conds []string
	var args []interface{}

	argsPosition := 1

	if filter.SearchTerm != nil && *filter.SearchTerm != "" {
		conds = append(conds, fmt.Sprintf("name ILIKE $%d", argsPosition))
		args = append(args, "%"+*filter.SearchTerm+"%")
		argsPosition++
	}

	if filter.Type != nil && *filter.Type != "all" {
		conds = append(conds, fmt.Sprintf("type = $%d", argsPosition))
		args = append(args, *filter.Type)
		argsPosition++
	}

	if filter.Offer != nil {
		conds = append(conds, fmt.Sprintf("offer = $%d", argsPosition))
		args = append(args, *filter.Offer)
		argsPosition++
	}

	if filter.Furnished != nil {
		conds = append(conds, fmt.Sprintf("furnished = $%d", argsPosition))
		args = append(args, *filter.Furnished)
		argsPosition++
	}

	if filter.Parking != nil {
		conds = append(conds, fmt.Sprintf("parking = $%d", argsPosition))
		args = append(args, *filter.Parking)
		argsPosition++
	}

	query := `SELECT ` + listingColumns + ` FROM listings`

	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}

	sortCol := "created_at"
	if filter.Sort == "regularPrice" {
		sortCol = "regular_price"
	}

	direction := "DESC"
	if filter.Order == "asc" {
		direction = "ASC"
	}

	// id tiebreak keeps the ordering stable for pagination
	query += fmt.Sprintf(" ORDER BY %s %s, id LIMIT $%d OFFSET $%d", sortCol, direction, argsPosition, argsPosition+1)

	args = append(args, filter.Limit, filter.Offset)

	out := make([]listing.Listing, 0, filter.Limit)

	err := r.observe("listings.search", func() error {
		rows, err := r.pool.Query(ctx, query, args...)

		if err != nil {
			return err
		}

		defer rows.Close()

		for rows.Next() {
			l, err := scanListing(rows)

			if err != nil {
				return err
			}

			out = append(out, l)
		}

		return rows.Err()
	})

	if err != nil {
		return nil, err
	}

	return out, nil
}

func (r *ListingsRepo) Update(ctx context.Context, id string, req listing.UpdateRequest) (listing.Listing, error) {
	var l listing.Listing

	err := r.observe("listings.update", func() error {
		var err error
		l, err = scanListing(r.pool.QueryRow(
			ctx,
			`UPDATE listings
				SET name           = $2,
				    description    = $3,
				    address        = $4,
				    type           = $5,
				    parking        = $6,
				    furnished      = $7,
				    offer          = $8,
				    bedrooms       = $9,
				    bathrooms      = $10,
				    regular_price  = $11,
				    discount_price = $12,
				    image_urls     = $13,
				    updated_at     = NOW()
			 WHERE id = $1
			 RETURNING `+listingColumns,
			id,
			req.Name,
			req.Description,
			req.Address,
			req.Type,
			req.Parking,
			req.Furnished,
			req.Offer,
			req.Bedrooms,
			req.Bathrooms,
			req.RegularPrice,
			req.DiscountPrice,
			req.ImageURLs,
		))
		return err
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return listing.Listing{}, listing.ErrNotFound
		}

		return listing.Listing{}, err
	}

	return l, nil
}

func (r *ListingsRepo) Delete(ctx context.Context, id string) error {
	var tag pgconn.CommandTag

	err := r.observe("listings.delete", func() error {
		var err error
		tag, err = r.pool.Exec(ctx, `DELETE FROM listings WHERE id = $1`, id)
		return err
	})

	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return listing.ErrNotFound
	}

	return nil
}
