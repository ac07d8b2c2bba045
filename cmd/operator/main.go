package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"hbank/internal/auth"
	"hbank/internal/config"
	"hbank/internal/db"
	"hbank/internal/logging"
	"hbank/internal/store"
	"hbank/internal/validator"

	"github.com/go-kit/log/level"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	flag "github.com/spf13/pflag"
)

var errUnknownRole = errors.New("unknown role")

var knownRoles = map[string]bool{
	store.RolePublishRates:      true,
	store.RoleSettleDeposits:    true,
	store.RoleSettleWithdrawals: true,
}

type operatorStore interface {
	HasAnyOperator(ctx context.Context) (bool, error)
	Create(ctx context.Context, tx store.Execer, id, username, passwordHash string, isSuper bool) error
	GrantRole(ctx context.Context, tx store.Execer, id, role string) error
}

type auditLogger interface {
	Log(ctx context.Context, tx store.Execer, actorID, action, entityType, entityID, data string) error
}

type request struct {
	Username string
	Password string
	Super    bool
	Roles    []string
}

func main() {
	var req request
	flags := flag.NewFlagSet("operator", flag.ExitOnError)
	flags.StringVarP(&req.Username, "username", "u", "", "operator username")
	flags.StringVarP(&req.Password, "password", "p", "", "operator password (falls back to OPERATOR_PASSWORD)")
	flags.BoolVar(&req.Super, "super", false, "grant every role")
	flags.StringSliceVarP(&req.Roles, "role", "r", nil, "role to grant, repeatable: publish_rates, settle_deposits, settle_withdrawals")
	_ = flags.Parse(os.Args[1:])
	if req.Password == "" {
		req.Password = os.Getenv("OPERATOR_PASSWORD")
	}

	cfg, err := config.Load()
	logger := logging.Scoped(logging.New(os.Stderr, cfg.LogLevel), "operator")
	if err != nil {
		level.Error(logger).Log("msg", "invalid configuration", "err", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	database, err := db.Connect(ctx, cfg.DatabaseURL, cfg.DB)
	if err != nil {
		level.Error(logger).Log("msg", "failed to connect database", "err", err)
		os.Exit(1)
	}
	defer database.Close()

	id, err := createOperator(ctx, db.NewTxRunner(database), store.NewOperatorStore(database), store.NewAuditStore(database), req)
	if err != nil {
		level.Error(logger).Log("msg", "create operator failed", "username", req.Username, "err", err)
		os.Exit(1)
	}
	level.Info(logger).Log("msg", "operator created", "id", id, "username", req.Username)
}

// createOperator stores a new operator and its roles in one transaction. The
// first operator ever created is always a super operator.
func createOperator(ctx context.Context, runner db.TxRunner, operators operatorStore, audit auditLogger, req request) (string, error) {
	username := strings.TrimSpace(req.Username)
	if err := validator.ValidateUsername(username); err != nil {
		return "", err
	}
	if err := validator.ValidatePassword(req.Password); err != nil {
		return "", err
	}
	roles, err := normalizeRoles(req.Roles)
	if err != nil {
		return "", err
	}

	exists, err := operators.HasAnyOperator(ctx)
	if err != nil {
		return "", fmt.Errorf("count operators: %w", err)
	}
	isSuper := req.Super || !exists

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}

	id := uuid.NewString()
	err = runner.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := operators.Create(ctx, tx, id, username, hash, isSuper); err != nil {
			if db.IsUniqueViolation(err) {
				return fmt.Errorf("username %q already taken", username)
			}
			return err
		}
		for _, role := range roles {
			if err := operators.GrantRole(ctx, tx, id, role); err != nil {
				return fmt.Errorf("grant %s: %w", role, err)
			}
		}
		data := fmt.Sprintf(`{"username":%q,"super":%t,"roles":%q}`, username, isSuper, strings.Join(roles, ","))
		return audit.Log(ctx, tx, "", "operator.create", "operator", id, data)
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

func normalizeRoles(raw []string) ([]string, error) {
	seen := map[string]bool{}
	var roles []string
	for _, role := range raw {
		role = strings.ToLower(strings.TrimSpace(role))
		if role == "" || seen[role] {
			continue
		}
		if !knownRoles[role] {
			return nil, fmt.Errorf("%w: %s", errUnknownRole, role)
		}
		seen[role] = true
		roles = append(roles, role)
	}
	return roles, nil
}
