package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"

	"github.com/gichigi/choir/internal/config"
	"github.com/gichigi/choir/internal/content"
	"github.com/gichigi/choir/internal/core"
	"github.com/gichigi/choir/internal/models"
)

type DatabaseClient struct {
	db  *sql.DB
	log *zap.Logger
}

var _ core.DbClient = (*DatabaseClient)(nil)

func NewDatabaseClient(ctx context.Context, cfg *config.Config, log *zap.Logger) (*DatabaseClient, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database client configuration is nil")
	}
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is empty")
	}

	dsn := cfg.DatabaseURL
	if cfg.SslCertPath != "" {
		if _, err := os.Stat(cfg.SslCertPath); err != nil {
			return nil, fmt.Errorf("ssl cert not accessible at %q: %w", cfg.SslCertPath, err)
		}
		// Append SSL params to the provided DATABASE_URL safely.
		u, err := url.Parse(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("invalid DATABASE_URL: %w", err)
		}
		q := u.Query()
		q.Set("sslmode", "verify-ca")
		q.Set("sslrootcert", cfg.SslCertPath)
		u.RawQuery = q.Encode()
		dsn = u.String()
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetConnMaxIdleTime(10 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	if err := EnsureBootstrapped(ctx, db, log); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("bootstrap: %w", err)
	}

	log.Info("connected to postgres")
	return &DatabaseClient{db: db, log: log}, nil
}

func (c *DatabaseClient) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func now() time.Time { return time.Now().UTC().Truncate(time.Microsecond) }

// Accounts

func (c *DatabaseClient) CreateAccount(ctx context.Context, account *models.Account) error {
	if account == nil {
		return errors.New("nil account")
	}
	if account.ID == "" {
		account.ID = uuid.NewString()
	}
	ts := now()
	account.CreatedAt, account.UpdatedAt = ts, ts
	const q = `
		INSERT INTO accounts (id, email, name, password_hash, created_at, updated_at)
		VALUES ($1, lower($2), $3, $4, $5, $6)
	`
	_, err := c.db.ExecContext(ctx, q,
		account.ID, account.Email, account.Name, account.PasswordHash, account.CreatedAt, account.UpdatedAt)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: email already registered", core.ErrValidation)
	}
	return err
}

const accountColumns = `id, email, name, password_hash, created_at, updated_at`

func (c *DatabaseClient) getAccount(ctx context.Context, where string, arg any) (*models.Account, error) {
	var a models.Account
	err := c.db.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE `+where, arg).Scan(
		&a.ID, &a.Email, &a.Name, &a.PasswordHash, &a.CreatedAt, &a.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (c *DatabaseClient) GetAccountByEmail(ctx context.Context, email string) (*models.Account, error) {
	return c.getAccount(ctx, `email = lower($1)`, email)
}

func (c *DatabaseClient) GetAccountByID(ctx context.Context, id string) (*models.Account, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, nil
	}
	return c.getAccount(ctx, `id = $1`, id)
}

// Onboarding drafts

const draftColumns = `id, session_id, account_id, business_name, year_founded, business_description,
	website, target_audience, company_values, additional_info, generated_voice, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDraft(row rowScanner) (*models.OnboardingDraft, error) {
	var (
		d         models.OnboardingDraft
		sessionID sql.NullString
		accountID sql.NullString
		voice     []byte
	)
	err := row.Scan(&d.ID, &sessionID, &accountID,
		&d.BusinessName, &d.YearFounded, &d.BusinessDescription, &d.Website,
		&d.TargetAudience, &d.CompanyValues, &d.AdditionalInfo, &voice, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if sessionID.Valid {
		d.SessionID = &sessionID.String
	}
	if accountID.Valid {
		d.AccountID = &accountID.String
	}
	if len(voice) > 0 {
		var v models.VoiceProfile
		if err := json.Unmarshal(voice, &v); err != nil {
			return nil, fmt.Errorf("decode generated_voice: %w", err)
		}
		d.GeneratedVoice = &v
	}
	return &d, nil
}

func draftArgs(f models.DraftFields) []any {
	return []any{f.BusinessName, f.YearFounded, f.BusinessDescription, f.Website,
		f.TargetAudience, f.CompanyValues, f.AdditionalInfo}
}

func (c *DatabaseClient) UpsertDraftForSession(ctx context.Context, sessionID string, fields models.DraftFields) (*models.OnboardingDraft, error) {
	const q = `
		INSERT INTO onboarding_drafts
			(id, session_id, business_name, year_founded, business_description, website,
			 target_audience, company_values, additional_info, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)
		ON CONFLICT (session_id) DO UPDATE SET
			business_name = EXCLUDED.business_name,
			year_founded = EXCLUDED.year_founded,
			business_description = EXCLUDED.business_description,
			website = EXCLUDED.website,
			target_audience = EXCLUDED.target_audience,
			company_values = EXCLUDED.company_values,
			additional_info = EXCLUDED.additional_info,
			updated_at = EXCLUDED.updated_at
		RETURNING ` + draftColumns
	args := append([]any{uuid.NewString(), sessionID}, draftArgs(fields)...)
	args = append(args, now())
	return scanDraft(c.db.QueryRowContext(ctx, q, args...))
}

// UpsertDraftForAccount runs the three-way upsert in one transaction. Candidate
// rows are locked so a concurrent reconciliation for the same account or
// session waits instead of inserting a duplicate.
func (c *DatabaseClient) UpsertDraftForAccount(ctx context.Context, accountID string, fields models.DraftFields, sessionID string) (*models.OnboardingDraft, error) {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	ts := now()
	var id string
	err = tx.QueryRowContext(ctx, `SELECT id FROM onboarding_drafts WHERE account_id = $1 FOR UPDATE`, accountID).Scan(&id)
	switch {
	case err == nil:
		c.log.Debug("patching account draft", zap.String("account_id", accountID), zap.String("draft_id", id))
	case errors.Is(err, sql.ErrNoRows):
		if sessionID != "" {
			err = tx.QueryRowContext(ctx, `SELECT id FROM onboarding_drafts WHERE session_id = $1 FOR UPDATE`, sessionID).Scan(&id)
			if err != nil && !errors.Is(err, sql.ErrNoRows) {
				return nil, err
			}
		}
	default:
		return nil, err
	}

	var row *sql.Row
	if id != "" {
		const q = `
			UPDATE onboarding_drafts SET
				account_id = $2, session_id = NULL,
				business_name = $3, year_founded = $4, business_description = $5, website = $6,
				target_audience = $7, company_values = $8, additional_info = $9,
				updated_at = $10
			WHERE id = $1
			RETURNING ` + draftColumns
		args := append([]any{id, accountID}, draftArgs(fields)...)
		row = tx.QueryRowContext(ctx, q, append(args, ts)...)
	} else {
		const q = `
			INSERT INTO onboarding_drafts
				(id, account_id, business_name, year_founded, business_description, website,
				 target_audience, company_values, additional_info, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)
			RETURNING ` + draftColumns
		args := append([]any{uuid.NewString(), accountID}, draftArgs(fields)...)
		row = tx.QueryRowContext(ctx, q, append(args, ts)...)
	}

	d, err := scanDraft(row)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return d, nil
}

func (c *DatabaseClient) getDraft(ctx context.Context, where, arg string) (*models.OnboardingDraft, error) {
	d, err := scanDraft(c.db.QueryRowContext(ctx, `SELECT `+draftColumns+` FROM onboarding_drafts WHERE `+where, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return d, err
}

func (c *DatabaseClient) GetDraftBySession(ctx context.Context, sessionID string) (*models.OnboardingDraft, error) {
	return c.getDraft(ctx, `session_id = $1`, sessionID)
}

func (c *DatabaseClient) GetDraftByAccount(ctx context.Context, accountID string) (*models.OnboardingDraft, error) {
	return c.getDraft(ctx, `account_id = $1`, accountID)
}

func (c *DatabaseClient) GetDraftByID(ctx context.Context, id string) (*models.OnboardingDraft, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, nil
	}
	return c.getDraft(ctx, `id = $1`, id)
}

func (c *DatabaseClient) SetDraftVoice(ctx context.Context, draftID string, voice *models.VoiceProfile) error {
	var raw []byte
	if voice != nil {
		var err error
		if raw, err = json.Marshal(voice); err != nil {
			return err
		}
	}
	res, err := c.db.ExecContext(ctx,
		`UPDATE onboarding_drafts SET generated_voice = $2, updated_at = $3 WHERE id = $1`, draftID, raw, now())
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("draft %s: %w", draftID, core.ErrNotFound)
	}
	return nil
}

// Brand voices

const voiceColumns = `id, account_id, name, business_summary, pillars, sample_blog_post,
	COALESCE(onboarding_draft_id::text, ''), created_at, updated_at`

func scanVoice(row rowScanner) (*models.BrandVoice, error) {
	var (
		v       models.BrandVoice
		pillars []byte
	)
	if err := row.Scan(&v.ID, &v.AccountID, &v.Name, &v.BusinessSummary, &pillars,
		&v.SampleBlogPost, &v.OnboardingDraftID, &v.CreatedAt, &v.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(pillars, &v.Pillars); err != nil {
		return nil, fmt.Errorf("decode pillars: %w", err)
	}
	return &v, nil
}

func nullableUUID(id string) any {
	if id == "" {
		return nil
	}
	return id
}

// ReplaceBrandVoice upserts on account_id so the voice id survives regeneration.
func (c *DatabaseClient) ReplaceBrandVoice(ctx context.Context, voice *models.BrandVoice) (*models.BrandVoice, error) {
	if voice == nil {
		return nil, errors.New("nil brand voice")
	}
	pillars, err := json.Marshal(voice.Pillars)
	if err != nil {
		return nil, err
	}
	const q = `
		INSERT INTO brand_voices
			(id, account_id, name, business_summary, pillars, sample_blog_post, onboarding_draft_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
		ON CONFLICT (account_id) DO UPDATE SET
			name = EXCLUDED.name,
			business_summary = EXCLUDED.business_summary,
			pillars = EXCLUDED.pillars,
			sample_blog_post = EXCLUDED.sample_blog_post,
			onboarding_draft_id = EXCLUDED.onboarding_draft_id,
			updated_at = EXCLUDED.updated_at
		RETURNING ` + voiceColumns
	return scanVoice(c.db.QueryRowContext(ctx, q,
		uuid.NewString(), voice.AccountID, voice.Name, voice.BusinessSummary, pillars,
		voice.SampleBlogPost, nullableUUID(voice.OnboardingDraftID), now()))
}

func (c *DatabaseClient) getVoice(ctx context.Context, where, arg string) (*models.BrandVoice, error) {
	v, err := scanVoice(c.db.QueryRowContext(ctx, `SELECT `+voiceColumns+` FROM brand_voices WHERE `+where, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return v, err
}

func (c *DatabaseClient) GetBrandVoiceByAccount(ctx context.Context, accountID string) (*models.BrandVoice, error) {
	if _, err := uuid.Parse(accountID); err != nil {
		return nil, nil
	}
	return c.getVoice(ctx, `account_id = $1`, accountID)
}

func (c *DatabaseClient) GetBrandVoiceByID(ctx context.Context, id string) (*models.BrandVoice, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, nil
	}
	return c.getVoice(ctx, `id = $1`, id)
}

func (c *DatabaseClient) UpdateBrandVoice(ctx context.Context, voice *models.BrandVoice) error {
	pillars, err := json.Marshal(voice.Pillars)
	if err != nil {
		return err
	}
	res, err := c.db.ExecContext(ctx, `
		UPDATE brand_voices
		SET name = $2, business_summary = $3, pillars = $4, sample_blog_post = $5, updated_at = $6
		WHERE id = $1
	`, voice.ID, voice.Name, voice.BusinessSummary, pillars, voice.SampleBlogPost, now())
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("brand voice %s: %w", voice.ID, core.ErrNotFound)
	}
	return nil
}

func (c *DatabaseClient) DeleteBrandVoice(ctx context.Context, id string) error {
	res, err := c.db.ExecContext(ctx, `DELETE FROM brand_voices WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("brand voice %s: %w", id, core.ErrNotFound)
	}
	return nil
}

// Content

const contentColumns = `id, account_id, brand_voice_id, title, type, body, tags, metadata, created_at, updated_at`

func scanContent(row rowScanner) (*models.ContentItem, error) {
	var (
		it       models.ContentItem
		tags     []byte
		metadata []byte
	)
	if err := row.Scan(&it.ID, &it.AccountID, &it.BrandVoiceID, &it.Title, &it.Type, &it.Body,
		&tags, &metadata, &it.CreatedAt, &it.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(tags, &it.Tags); err != nil {
		return nil, fmt.Errorf("decode tags: %w", err)
	}
	if err := json.Unmarshal(metadata, &it.Metadata); err != nil {
		return nil, fmt.Errorf("decode metadata: %w", err)
	}
	return &it, nil
}

func (c *DatabaseClient) CreateContent(ctx context.Context, item *models.ContentItem) error {
	if item == nil {
		return errors.New("nil content item")
	}
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	if item.CreatedAt.IsZero() {
		item.CreatedAt = now()
	}
	item.UpdatedAt = item.CreatedAt
	item.Tags = content.NormalizeTags(item.Tags)
	tags, err := json.Marshal(item.Tags)
	if err != nil {
		return err
	}
	metadata, err := json.Marshal(item.Metadata)
	if err != nil {
		return err
	}
	const q = `
		INSERT INTO content_items
			(id, account_id, brand_voice_id, title, type, body, tags, metadata, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err = c.db.ExecContext(ctx, q, item.ID, item.AccountID, item.BrandVoiceID, item.Title, item.Type,
		item.Body, tags, metadata, item.CreatedAt, item.UpdatedAt)
	return err
}

func (c *DatabaseClient) GetContentByID(ctx context.Context, id string) (*models.ContentItem, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, nil
	}
	it, err := scanContent(c.db.QueryRowContext(ctx, `SELECT `+contentColumns+` FROM content_items WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return it, err
}

func (c *DatabaseClient) UpdateContent(ctx context.Context, item *models.ContentItem) error {
	item.Tags = content.NormalizeTags(item.Tags)
	tags, err := json.Marshal(item.Tags)
	if err != nil {
		return err
	}
	metadata, err := json.Marshal(item.Metadata)
	if err != nil {
		return err
	}
	item.UpdatedAt = now()
	res, err := c.db.ExecContext(ctx, `
		UPDATE content_items
		SET title = $2, body = $3, tags = $4, metadata = $5, updated_at = $6
		WHERE id = $1
	`, item.ID, item.Title, item.Body, tags, metadata, item.UpdatedAt)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("content %s: %w", item.ID, core.ErrNotFound)
	}
	return nil
}

func (c *DatabaseClient) DeleteContent(ctx context.Context, id string) error {
	res, err := c.db.ExecContext(ctx, `DELETE FROM content_items WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("content %s: %w", id, core.ErrNotFound)
	}
	return nil
}

// escapeLike makes term safe for ILIKE with '\' as the escape character.
func escapeLike(term string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(term)
}

// buildListQuery renders q as SQL. It mirrors content.Filter: every provided
// filter is AND-ed, tags match on any overlap.
func buildListQuery(q models.ContentQuery) (string, []any, error) {
	var (
		where = []string{"account_id = $1"}
		args  = []any{q.AccountID}
	)
	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if q.Type != "" {
		where = append(where, "type = "+arg(q.Type))
	}
	if len(q.Tags) > 0 {
		where = append(where, "tags ?| "+arg(q.Tags)+"::text[]")
	}
	if q.SearchQuery != "" {
		p := arg("%" + escapeLike(q.SearchQuery) + "%")
		where = append(where, fmt.Sprintf(`(title ILIKE %s ESCAPE '\' OR body ILIKE %s ESCAPE '\')`, p, p))
	}
	if q.Cursor != "" {
		cur, err := content.DecodeCursor(q.Cursor)
		if err != nil {
			return "", nil, err
		}
		if _, err := uuid.Parse(cur.ID); err != nil {
			return "", nil, fmt.Errorf("%w: malformed cursor", core.ErrValidation)
		}
		where = append(where, fmt.Sprintf("(created_at, id) < (%s, %s)", arg(cur.CreatedAt), arg(cur.ID)))
	}

	sqlText := `SELECT ` + contentColumns + ` FROM content_items WHERE ` + strings.Join(where, " AND ") +
		` ORDER BY created_at DESC, id DESC LIMIT ` + arg(q.Limit+1)
	return sqlText, args, nil
}

func (c *DatabaseClient) ListContent(ctx context.Context, q models.ContentQuery) (models.ContentPage, error) {
	q = content.Normalize(q)
	if _, err := uuid.Parse(q.AccountID); err != nil {
		return content.BuildPage(nil, q.Limit), nil
	}
	sqlText, args, err := buildListQuery(q)
	if err != nil {
		return models.ContentPage{}, err
	}

	rows, err := c.db.QueryContext(ctx, sqlText, args...)
	if err != nil {
		return models.ContentPage{}, err
	}
	defer rows.Close()

	fetched := make([]models.ContentItem, 0, q.Limit+1)
	for rows.Next() {
		it, err := scanContent(rows)
		if err != nil {
			return models.ContentPage{}, err
		}
		fetched = append(fetched, *it)
	}
	if err := rows.Err(); err != nil {
		return models.ContentPage{}, err
	}
	return content.BuildPage(fetched, q.Limit), nil
}

func (c *DatabaseClient) ContentFacets(ctx context.Context, accountID string) (models.ContentFacets, error) {
	facets := models.ContentFacets{Types: []string{}, Tags: []string{}}
	if _, err := uuid.Parse(accountID); err != nil {
		return facets, nil
	}

	collect := func(q string, into *[]string) error {
		rows, err := c.db.QueryContext(ctx, q, accountID)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var s string
			if err := rows.Scan(&s); err != nil {
				return err
			}
			*into = append(*into, s)
		}
		return rows.Err()
	}

	if err := collect(`SELECT DISTINCT type FROM content_items WHERE account_id = $1 ORDER BY type`, &facets.Types); err != nil {
		return facets, err
	}
	err := collect(`
		SELECT DISTINCT t FROM content_items, jsonb_array_elements_text(tags) AS t
		WHERE account_id = $1 ORDER BY t
	`, &facets.Tags)
	return facets, err
}

// Billing

func (c *DatabaseClient) UpsertSubscription(ctx context.Context, sub *models.Subscription) error {
	if sub == nil {
		return errors.New("nil subscription")
	}
	const q = `
		INSERT INTO subscriptions
			(provider_id, account_id, status, interval, current_period_end, cancel_at_period_end, ended_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
		ON CONFLICT (provider_id) DO UPDATE SET
			account_id = EXCLUDED.account_id,
			status = EXCLUDED.status,
			interval = EXCLUDED.interval,
			current_period_end = EXCLUDED.current_period_end,
			cancel_at_period_end = EXCLUDED.cancel_at_period_end,
			ended_at = EXCLUDED.ended_at,
			updated_at = EXCLUDED.updated_at
	`
	_, err := c.db.ExecContext(ctx, q, sub.ProviderID, sub.AccountID, sub.Status, sub.Interval,
		sub.CurrentPeriodEnd, sub.CancelAtPeriodEnd, sub.EndedAt, now())
	return err
}

func (c *DatabaseClient) ListSubscriptionsByAccount(ctx context.Context, accountID string) ([]models.Subscription, error) {
	if _, err := uuid.Parse(accountID); err != nil {
		return nil, nil
	}
	const q = `
		SELECT provider_id, account_id, status, interval, current_period_end, cancel_at_period_end, ended_at, created_at, updated_at
		FROM subscriptions
		WHERE account_id = $1
		ORDER BY updated_at DESC
	`
	rows, err := c.db.QueryContext(ctx, q, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Subscription
	for rows.Next() {
		var (
			s                models.Subscription
			periodEnd, ended sql.NullTime
		)
		if err := rows.Scan(&s.ProviderID, &s.AccountID, &s.Status, &s.Interval, &periodEnd,
			&s.CancelAtPeriodEnd, &ended, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		if periodEnd.Valid {
			s.CurrentPeriodEnd = &periodEnd.Time
		}
		if ended.Valid {
			s.EndedAt = &ended.Time
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (c *DatabaseClient) RecordWebhookEvent(ctx context.Context, eventID, eventType string) (bool, error) {
	res, err := c.db.ExecContext(ctx,
		`INSERT INTO webhook_events (event_id, type) VALUES ($1, $2) ON CONFLICT (event_id) DO NOTHING`,
		eventID, eventType)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}
