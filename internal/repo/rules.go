package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/noah-isme/promo-engine/internal/condition"
	"github.com/noah-isme/promo-engine/internal/rule"
)

// ErrRuleNotFound indicates the requested promotion rule does not exist.
var ErrRuleNotFound = errors.New("promotion rule not found")

// ErrDuplicateCoupon indicates the coupon code is already taken by another rule.
var ErrDuplicateCoupon = errors.New("coupon code already exists")

// DBTX captures the pgx methods shared by pools and transactions.
type DBTX interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Rules provides access to the persisted promotion rule set. Condition trees
// are stored as JSONB; a row that fails to decode is surfaced as an error for
// the whole pass since it indicates data corruption, not a normal no-match.
type Rules struct {
	DB DBTX
}

const ruleColumns = `id, name, coupon_code, customer_group_ids, from_date, to_date,
	sort_order, stop_rules_processing, action, discount_amount, discount_percent_bps,
	discount_step, apply_to_shipping, conditions, action_conditions, active`

// ListActive returns every rule whose date window contains now, ordered by
// sort order then id so the selector's tie-break is already reflected in
// storage order.
func (r Rules) ListActive(ctx context.Context, now time.Time) ([]rule.Rule, error) {
	if r.DB == nil {
		return nil, errors.New("rules repo not configured")
	}
	rows, err := r.DB.Query(ctx, `SELECT `+ruleColumns+`
		FROM promo_rules
		WHERE active
		  AND (from_date IS NULL OR from_date <= $1)
		  AND (to_date IS NULL OR to_date >= $1)
		ORDER BY sort_order, id`, now)
	if err != nil {
		return nil, fmt.Errorf("list active rules: %w", err)
	}
	defer rows.Close()
	return scanRules(rows)
}

// List returns all rules regardless of state, newest last.
func (r Rules) List(ctx context.Context) ([]rule.Rule, error) {
	if r.DB == nil {
		return nil, errors.New("rules repo not configured")
	}
	rows, err := r.DB.Query(ctx, `SELECT `+ruleColumns+` FROM promo_rules ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list rules: %w", err)
	}
	defer rows.Close()
	return scanRules(rows)
}

// Get loads a single rule by id.
func (r Rules) Get(ctx context.Context, id int64) (rule.Rule, error) {
	if r.DB == nil {
		return rule.Rule{}, errors.New("rules repo not configured")
	}
	row := r.DB.QueryRow(ctx, `SELECT `+ruleColumns+` FROM promo_rules WHERE id = $1`, id)
	out, err := scanRule(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return rule.Rule{}, ErrRuleNotFound
		}
		return rule.Rule{}, err
	}
	return out, nil
}

// Create persists a new rule and returns it with its assigned id.
func (r Rules) Create(ctx context.Context, in rule.Rule) (rule.Rule, error) {
	if r.DB == nil {
		return rule.Rule{}, errors.New("rules repo not configured")
	}
	conditions, actionConditions, err := encodeConditions(in)
	if err != nil {
		return rule.Rule{}, err
	}
	row := r.DB.QueryRow(ctx, `INSERT INTO promo_rules
		(name, coupon_code, customer_group_ids, from_date, to_date, sort_order,
		 stop_rules_processing, action, discount_amount, discount_percent_bps,
		 discount_step, apply_to_shipping, conditions, action_conditions, active)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
		RETURNING `+ruleColumns,
		in.Name, nullableText(in.CouponCode), in.CustomerGroupIDs,
		nullableTime(in.FromDate), nullableTime(in.ToDate), in.SortOrder,
		in.StopRulesProcessing, string(in.Action), in.DiscountAmount,
		in.DiscountPercentBps, in.DiscountStep, in.ApplyToShipping,
		conditions, actionConditions, in.Active)
	out, err := scanRule(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return rule.Rule{}, ErrDuplicateCoupon
		}
		return rule.Rule{}, fmt.Errorf("create rule: %w", err)
	}
	return out, nil
}

// Update replaces a rule's definition by id.
func (r Rules) Update(ctx context.Context, in rule.Rule) (rule.Rule, error) {
	if r.DB == nil {
		return rule.Rule{}, errors.New("rules repo not configured")
	}
	conditions, actionConditions, err := encodeConditions(in)
	if err != nil {
		return rule.Rule{}, err
	}
	row := r.DB.QueryRow(ctx, `UPDATE promo_rules SET
		name = $2, coupon_code = $3, customer_group_ids = $4, from_date = $5,
		to_date = $6, sort_order = $7, stop_rules_processing = $8, action = $9,
		discount_amount = $10, discount_percent_bps = $11, discount_step = $12,
		apply_to_shipping = $13, conditions = $14, action_conditions = $15,
		active = $16, updated_at = now()
		WHERE id = $1
		RETURNING `+ruleColumns,
		in.ID, in.Name, nullableText(in.CouponCode), in.CustomerGroupIDs,
		nullableTime(in.FromDate), nullableTime(in.ToDate), in.SortOrder,
		in.StopRulesProcessing, string(in.Action), in.DiscountAmount,
		in.DiscountPercentBps, in.DiscountStep, in.ApplyToShipping,
		conditions, actionConditions, in.Active)
	out, err := scanRule(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return rule.Rule{}, ErrRuleNotFound
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return rule.Rule{}, ErrDuplicateCoupon
		}
		return rule.Rule{}, fmt.Errorf("update rule: %w", err)
	}
	return out, nil
}

// Delete removes a rule by id.
func (r Rules) Delete(ctx context.Context, id int64) error {
	if r.DB == nil {
		return errors.New("rules repo not configured")
	}
	tag, err := r.DB.Exec(ctx, `DELETE FROM promo_rules WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete rule: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrRuleNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRules(rows pgx.Rows) ([]rule.Rule, error) {
	var out []rule.Rule
	for rows.Next() {
		r, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rules: %w", err)
	}
	return out, nil
}

func scanRule(row rowScanner) (rule.Rule, error) {
	var (
		out              rule.Rule
		coupon           pgtype.Text
		fromDate, toDate pgtype.Timestamptz
		action           string
		conditions       []byte
		actionConditions []byte
	)
	if err := row.Scan(&out.ID, &out.Name, &coupon, &out.CustomerGroupIDs,
		&fromDate, &toDate, &out.SortOrder, &out.StopRulesProcessing, &action,
		&out.DiscountAmount, &out.DiscountPercentBps, &out.DiscountStep,
		&out.ApplyToShipping, &conditions, &actionConditions, &out.Active); err != nil {
		return rule.Rule{}, err
	}
	out.Action = rule.Action(action)
	if coupon.Valid {
		out.CouponCode = coupon.String
	}
	if fromDate.Valid {
		t := fromDate.Time
		out.FromDate = &t
	}
	if toDate.Valid {
		t := toDate.Time
		out.ToDate = &t
	}
	if len(conditions) > 0 {
		if err := json.Unmarshal(conditions, &out.Condition); err != nil {
			return rule.Rule{}, fmt.Errorf("decode rule %d conditions: %w", out.ID, err)
		}
	}
	if len(actionConditions) > 0 {
		var node condition.Node
		if err := json.Unmarshal(actionConditions, &node); err != nil {
			return rule.Rule{}, fmt.Errorf("decode rule %d action conditions: %w", out.ID, err)
		}
		out.ActionCondition = &node
	}
	return out, nil
}

func encodeConditions(in rule.Rule) ([]byte, []byte, error) {
	conditions, err := json.Marshal(in.Condition)
	if err != nil {
		return nil, nil, fmt.Errorf("encode conditions: %w", err)
	}
	var actionConditions []byte
	if in.ActionCondition != nil {
		actionConditions, err = json.Marshal(in.ActionCondition)
		if err != nil {
			return nil, nil, fmt.Errorf("encode action conditions: %w", err)
		}
	}
	return conditions, actionConditions, nil
}

func nullableText(s string) pgtype.Text {
	if s == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: s, Valid: true}
}

func nullableTime(t *time.Time) pgtype.Timestamptz {
	if t == nil {
		return pgtype.Timestamptz{}
	}
	return pgtype.Timestamptz{Time: *t, Valid: true}
}
