package pipeline

import (
	"fmt"
	"log/slog"

	"signalhound/internal/clustering"
	"signalhound/internal/logger"
	"signalhound/internal/persistence"
	"signalhound/internal/quality"
	"signalhound/internal/reputation"
)

// Builder assembles a Pipeline. Database, classifier, embedder, and
// matcher must be provided; the scoring components default to their
// standard configurations, and the cache, fetcher, and indexers are
// optional with reduced functionality when absent.
type Builder struct {
	config     *Config
	db         persistence.Database
	classifier Classifier
	embedder   Embedder
	fetcher    Fetcher
	cache      Cache
	matcher    Matcher
	vectors    VectorIndexer
	lexical    LexicalIndexer
	reputation *reputation.Scorer
	quality    *quality.Scorer
	clusterer  *clustering.Engine
	log        *slog.Logger
}

func NewBuilder() *Builder {
	return &Builder{
		config: DefaultConfig(),
		log:    logger.Get(),
	}
}

// WithConfig replaces the default run configuration.
func (b *Builder) WithConfig(cfg *Config) *Builder {
	b.config = cfg
	return b
}

// WithDatabase sets the signal catalog database.
func (b *Builder) WithDatabase(db persistence.Database) *Builder {
	b.db = db
	return b
}

// WithClassifier sets the triage and analysis model client.
func (b *Builder) WithClassifier(c Classifier) *Builder {
	b.classifier = c
	return b
}

// WithEmbedder sets the embedding model client.
func (b *Builder) WithEmbedder(e Embedder) *Builder {
	b.embedder = e
	return b
}

// WithFetcher enables content resolution for bare-URL documents.
func (b *Builder) WithFetcher(f Fetcher) *Builder {
	b.fetcher = f
	return b
}

// WithCache enables the local ingest cache and replay protection.
func (b *Builder) WithCache(c Cache) *Builder {
	b.cache = c
	return b
}

// WithMatcher sets the corpus matcher the committer consults.
func (b *Builder) WithMatcher(m Matcher) *Builder {
	b.matcher = m
	return b
}

// WithVectorIndex keeps the vector index current as signals commit.
func (b *Builder) WithVectorIndex(v VectorIndexer) *Builder {
	b.vectors = v
	return b
}

// WithLexicalIndex keeps the lexical index current as signals commit.
func (b *Builder) WithLexicalIndex(l LexicalIndexer) *Builder {
	b.lexical = l
	return b
}

// WithReputation replaces the default reputation scorer.
func (b *Builder) WithReputation(s *reputation.Scorer) *Builder {
	b.reputation = s
	return b
}

// WithQuality replaces the default quality scorer.
func (b *Builder) WithQuality(s *quality.Scorer) *Builder {
	b.quality = s
	return b
}

// WithClusterer replaces the default cluster engine.
func (b *Builder) WithClusterer(e *clustering.Engine) *Builder {
	b.clusterer = e
	return b
}

// WithLogger replaces the default logger.
func (b *Builder) WithLogger(log *slog.Logger) *Builder {
	b.log = log
	return b
}

// Build validates required dependencies and wires defaults for the
// rest.
func (b *Builder) Build() (*Pipeline, error) {
	if b.db == nil {
		return nil, fmt.Errorf("pipeline requires a database")
	}
	if b.classifier == nil {
		return nil, fmt.Errorf("pipeline requires a classifier")
	}
	if b.embedder == nil {
		return nil, fmt.Errorf("pipeline requires an embedder")
	}
	if b.matcher == nil {
		return nil, fmt.Errorf("pipeline requires a matcher")
	}

	if b.config == nil {
		b.config = DefaultConfig()
	}
	if b.config.MaxWorkers < 1 {
		b.config.MaxWorkers = 1
	}
	if b.log == nil {
		b.log = logger.Get()
	}
	if b.reputation == nil {
		b.reputation = reputation.NewScorer(b.db.Domains())
	}
	if b.clusterer == nil {
		b.clusterer = clustering.NewEngine(clustering.DefaultSimilarityThreshold)
	}
	if b.quality == nil {
		scorer, err := quality.NewScorer(b.reputation, quality.DefaultWeights(), 0, "")
		if err != nil {
			return nil, fmt.Errorf("quality scorer: %w", err)
		}
		b.quality = scorer
	}

	return &Pipeline{
		db:         b.db,
		classifier: b.classifier,
		embedder:   b.embedder,
		fetcher:    b.fetcher,
		cache:      b.cache,
		matcher:    b.matcher,
		vectors:    b.vectors,
		lexical:    b.lexical,
		reputation: b.reputation,
		quality:    b.quality,
		clusterer:  b.clusterer,
		config:     b.config,
		log:        b.log,
	}, nil
}
