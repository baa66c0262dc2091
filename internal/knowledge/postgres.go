package knowledge

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	snippetsQuery = `SELECT topic, subtopic, text, source, trust_score
		 FROM postpartum_snippets
		 WHERE ` + topicKeySQL("topic") + ` = $1
		 ORDER BY trust_score DESC LIMIT $2`

	resourcesQuery = `SELECT name, phone, url, topic, region, trust_score
		 FROM postpartum_resources
		 WHERE ` + topicKeySQL("topic") + ` = $1
		   AND ` + regionKeySQL("region") + ` = $2
		 ORDER BY trust_score DESC LIMIT $3`
)

// topicKeySQL is NormalizeTopic written as a SQL expression over col, so rows
// loaded from outside this process match the same way the in-memory store does.
func topicKeySQL(col string) string {
	return fmt.Sprintf(`btrim(regexp_replace(lower(%s), '[[:space:]_]+', '_', 'g'), '_')`, col)
}

// regionKeySQL is NormalizeRegion over col, aliases included.
func regionKeySQL(col string) string {
	key := topicKeySQL(col)
	aliases := make([]string, 0, len(regionAliases))
	for alias := range regionAliases {
		aliases = append(aliases, alias)
	}
	sort.Strings(aliases)

	var b strings.Builder
	b.WriteString("(CASE " + key)
	for _, alias := range aliases {
		fmt.Fprintf(&b, " WHEN '%s' THEN '%s'", alias, regionAliases[alias])
	}
	b.WriteString(" ELSE " + key + " END)")
	return b.String()
}

// PostgresStore reads snippets and resources from PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	if err := initSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	if err := seedIfEmpty(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresStore{pool: pool}, nil
}

func initSchema(ctx context.Context, pool *pgxpool.Pool) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS postpartum_snippets (
			id BIGSERIAL PRIMARY KEY,
			topic TEXT NOT NULL,
			subtopic TEXT NOT NULL DEFAULT '',
			text TEXT NOT NULL,
			source TEXT NOT NULL DEFAULT '',
			trust_score DOUBLE PRECISION NOT NULL DEFAULT 0
		);`,
		`CREATE INDEX IF NOT EXISTS idx_postpartum_snippets_topic_key ON postpartum_snippets ((` + topicKeySQL("topic") + `), trust_score DESC);`,
		`CREATE TABLE IF NOT EXISTS postpartum_resources (
			id BIGSERIAL PRIMARY KEY,
			name TEXT NOT NULL,
			phone TEXT NOT NULL DEFAULT '',
			url TEXT NOT NULL DEFAULT '',
			topic TEXT NOT NULL,
			region TEXT NOT NULL,
			trust_score DOUBLE PRECISION NOT NULL DEFAULT 0
		);`,
		`CREATE INDEX IF NOT EXISTS idx_postpartum_resources_topic_region_key ON postpartum_resources ((` + topicKeySQL("topic") + `), (` + regionKeySQL("region") + `), trust_score DESC);`,
	}

	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init schema failed on %q: %w", stmt, err)
		}
	}
	return nil
}

// seedIfEmpty loads the built-in catalog into tables that have no rows yet.
func seedIfEmpty(ctx context.Context, pool *pgxpool.Pool) error {
	var snippets, resources int
	err := pool.QueryRow(ctx,
		`SELECT (SELECT count(*) FROM postpartum_snippets), (SELECT count(*) FROM postpartum_resources)`,
	).Scan(&snippets, &resources)
	if err != nil {
		return fmt.Errorf("count knowledge rows: %w", err)
	}

	batch := &pgx.Batch{}
	if snippets == 0 {
		for _, s := range builtinSnippets {
			batch.Queue(
				`INSERT INTO postpartum_snippets (topic, subtopic, text, source, trust_score) VALUES ($1, $2, $3, $4, $5)`,
				s.Topic, s.Subtopic, s.Text, s.Source, s.TrustScore,
			)
		}
	}
	if resources == 0 {
		for _, r := range builtinResources {
			batch.Queue(
				`INSERT INTO postpartum_resources (name, phone, url, topic, region, trust_score) VALUES ($1, $2, $3, $4, $5, $6)`,
				r.Name, r.Phone, r.URL, r.Topic, r.Region, r.TrustScore,
			)
		}
	}
	if batch.Len() == 0 {
		return nil
	}
	if err := pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("seed knowledge catalog: %w", err)
	}
	return nil
}

func (s *PostgresStore) Snippets(ctx context.Context, topic string, limit int) ([]Snippet, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}

	rows, err := s.pool.Query(ctx, snippetsQuery, NormalizeTopic(topic), limit)
	if err != nil {
		return nil, fmt.Errorf("query snippets: %w", err)
	}
	defer rows.Close()

	items := make([]Snippet, 0, limit)
	for rows.Next() {
		var sn Snippet
		if err := rows.Scan(&sn.Topic, &sn.Subtopic, &sn.Text, &sn.Source, &sn.TrustScore); err != nil {
			return nil, fmt.Errorf("scan snippet row: %w", err)
		}
		items = append(items, sn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snippet rows: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) Resources(ctx context.Context, topic, region string, limit int) ([]Resource, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}

	rows, err := s.pool.Query(ctx, resourcesQuery, NormalizeTopic(topic), NormalizeRegion(region), limit)
	if err != nil {
		return nil, fmt.Errorf("query resources: %w", err)
	}
	defer rows.Close()

	items := make([]Resource, 0, limit)
	for rows.Next() {
		var r Resource
		if err := rows.Scan(&r.Name, &r.Phone, &r.URL, &r.Topic, &r.Region, &r.TrustScore); err != nil {
			return nil, fmt.Errorf("scan resource row: %w", err)
		}
		items = append(items, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate resource rows: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) Mode() string { return "postgres" }

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
