package share

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/hitoshi/bukuma/internal/metrics"
	"github.com/hitoshi/bukuma/internal/model"
	"github.com/hitoshi/bukuma/internal/repository"
)

// VerifierConfig はパスワード検証プロトコルの設定。
type VerifierConfig struct {
	BcryptCost int           // ダミーハッシュの生成コスト（実ハッシュと揃える）
	GrantTTL   time.Duration // 発行するShareGrantの有効期間
}

// Verifier はスラグとパスワードの組を検証し、通過時にスラグスコープの
// ShareGrantを発行する。
//
// 拒否となる4ケース（スラグ不存在・モード不一致・ハッシュ不在・パスワード不一致）は
// いずれも同一のエラー値を返し、レスポンスからは区別できない。
// ハッシュが存在しない経路でも必ず同一コストのダミーハッシュと比較するため、
// 所要時間からも区別できない。
type Verifier struct {
	credentials repository.ShareCredentialFinder
	grants      repository.ShareGrantRepository
	config      VerifierConfig
	metrics     metrics.Recorder
	dummyHash   []byte
}

// NewVerifier はVerifierを生成する。
// ダミーハッシュは実ハッシュと同一アルゴリズム・同一コストで1回だけ生成する。
// metricsはnilでもよい。
func NewVerifier(
	credentials repository.ShareCredentialFinder,
	grants repository.ShareGrantRepository,
	config VerifierConfig,
	m metrics.Recorder,
) (*Verifier, error) {
	dummy, err := bcrypt.GenerateFromPassword([]byte("bukuma-dummy-credential"), config.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to generate dummy hash: %w", err)
	}

	return &Verifier{
		credentials: credentials,
		grants:      grants,
		config:      config,
		metrics:     m,
		dummyHash:   dummy,
	}, nil
}

// Verify はスラグとパスワードの組を検証する。
// 通過時はスラグスコープのShareGrantを発行して返す。
// 拒否は*model.APIError（常に同一ペイロード）、基盤障害のみそれ以外のエラーとなる。
func (v *Verifier) Verify(ctx context.Context, slug, password string) (*model.ShareGrant, error) {
	start := time.Now()
	defer func() {
		if v.metrics != nil {
			v.metrics.RecordVerifyLatency(time.Since(start))
		}
	}()

	cred, err := v.credentials.FindCredentialBySlug(ctx, slug)
	if err != nil {
		return nil, fmt.Errorf("failed to load share credential: %w", err)
	}

	// 比較対象のハッシュを決める。実ハッシュが使えない経路では
	// ダミーハッシュと比較し、高コストなハッシュ演算を分岐によらず
	// 必ず1回実行する。
	hash := v.dummyHash
	real := false
	if cred != nil && cred.ShareMode == model.ShareModePassword && cred.PasswordHash != "" {
		hash = []byte(cred.PasswordHash)
		real = true
	}

	// bcryptのCompareHashAndPasswordは内部で定数時間比較を行う。
	cmpErr := bcrypt.CompareHashAndPassword(hash, []byte(password))

	if !real || cmpErr != nil {
		if v.metrics != nil {
			v.metrics.RecordVerifyAttempt("deny")
		}
		// どの拒否経路でも同一のペイロード。スラグはログにも出さない
		// （存在推測の材料をログ閲覧者以外に渡さないのは当然として、
		// ここでは試行の事実だけ残す）。
		slog.Info("share verification denied")
		return nil, model.NewShareVerifyFailedError()
	}

	grant, err := v.issueGrant(ctx, slug)
	if err != nil {
		return nil, err
	}

	if v.metrics != nil {
		v.metrics.RecordVerifyAttempt("allow")
	}
	slog.Info("share verification succeeded", slog.String("slug", slug))

	return grant, nil
}

// HasValidGrant はスラグに対する有効なShareGrantが存在するかを返す。
// トークンが空、期限切れ、別スラグ向けの場合はいずれもfalse。
func (v *Verifier) HasValidGrant(ctx context.Context, slug, token string) (bool, error) {
	if token == "" {
		return false, nil
	}

	grant, err := v.grants.FindValid(ctx, token, slug)
	if err != nil {
		return false, fmt.Errorf("failed to check share grant: %w", err)
	}
	if grant == nil {
		return false, nil
	}

	// SQL側の期限判定に加えてここでも再確認する
	return grant.ExpiresAt.After(time.Now()), nil
}

// issueGrant はスラグスコープのShareGrantを作成して永続化する。
func (v *Verifier) issueGrant(ctx context.Context, slug string) (*model.ShareGrant, error) {
	token, err := generateGrantToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate grant token: %w", err)
	}

	now := time.Now()
	grant := &model.ShareGrant{
		ID:        token,
		Slug:      slug,
		ExpiresAt: now.Add(v.config.GrantTTL),
		CreatedAt: now,
	}

	if err := v.grants.Create(ctx, grant); err != nil {
		return nil, fmt.Errorf("failed to save share grant: %w", err)
	}

	return grant, nil
}

// generateGrantToken は暗号的に安全なトークンを生成する。
func generateGrantToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
