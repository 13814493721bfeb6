// Package cli implements the commands of the rentsync client.
package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/iudanet/rentsync/internal/client/auth"
	"github.com/iudanet/rentsync/internal/client/connectivity"
	"github.com/iudanet/rentsync/internal/client/iocli"
	"github.com/iudanet/rentsync/internal/client/queue"
	"github.com/iudanet/rentsync/internal/client/shop"
	"github.com/iudanet/rentsync/internal/client/sync"
)

// ErrUnknownCommand возвращается для неизвестной команды
var ErrUnknownCommand = errors.New("unknown command")

// ErrUsage возвращается при неверных аргументах команды
var ErrUsage = errors.New("invalid arguments")

// Deps собранные зависимости команд
type Deps struct {
	Auth    *auth.Service
	Shop    *shop.Service
	Queue   *queue.Manager
	Engine  *sync.Engine
	Monitor *connectivity.Monitor
	Logger  *slog.Logger
	// Degraded непустой, если локальное хранилище недоступно и данные живут только в памяти
	Degraded error
	// Password пароль из окружения для неинтерактивного входа
	Password string
}

// Cli выполняет команды пользователя
type Cli struct {
	io iocli.IO
	Deps
}

// New creates CLI writing to io.
func New(io iocli.IO, deps Deps) *Cli {
	return &Cli{io: io, Deps: deps}
}

// Run executes the command in args[0].
func (c *Cli) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		c.PrintUsage()
		return fmt.Errorf("%w: no command given", ErrUsage)
	}

	if c.Degraded != nil {
		c.io.Printf("Warning: %v\n", c.Degraded)
		c.io.Println("Changes made in this session will be lost on exit.")
		c.io.Println()
	}

	command, rest := args[0], args[1:]
	switch command {
	case "register":
		return c.runRegister(ctx)
	case "login":
		return c.runLogin(ctx)
	case "logout":
		return c.runLogout(ctx)
	case "status":
		return c.runStatus(ctx)
	case "cart":
		return c.runCart(ctx, rest)
	case "wishlist":
		return c.runWishlist(ctx, rest)
	case "reserve":
		return c.runReserve(ctx, rest)
	case "sync":
		return c.runSync(ctx)
	case "conflicts":
		return c.runConflicts(ctx)
	case "resolve":
		return c.runResolve(ctx, rest)
	case "purge":
		return c.runPurge(ctx, rest)
	case "watch":
		return c.runWatch(ctx)
	case "help":
		c.PrintUsage()
		return nil
	default:
		c.PrintUsage()
		return fmt.Errorf("%w: %s", ErrUnknownCommand, command)
	}
}

// requireLogin проверяет наличие живой сессии перед обращением к серверу
func (c *Cli) requireLogin(ctx context.Context) error {
	if _, err := c.Auth.Current(ctx); err != nil {
		if errors.Is(err, auth.ErrAuthNotFound) || errors.Is(err, auth.ErrAuthExpired) {
			return fmt.Errorf("%w. Please run 'rentsync login' first", err)
		}
		return fmt.Errorf("failed to read session: %w", err)
	}
	return nil
}

// PrintUsage prints command reference.
func (c *Cli) PrintUsage() {
	c.io.Println("rentsync - offline cart, wishlist and reservations for the rental storefront")
	c.io.Println()
	c.io.Println("Usage:")
	c.io.Println("  rentsync [OPTIONS] COMMAND [ARGS]")
	c.io.Println()
	c.io.Println("Options:")
	c.io.Println("  --version                  Show version information")
	c.io.Println("  --server URL               Server URL (env RENTSYNC_SERVER, default: http://localhost:8080)")
	c.io.Println("  --db PATH                  Local database (env RENTSYNC_DB, default: XDG data dir)")
	c.io.Println("  --conflict-policy NAME     manual, keep_local, keep_remote, last_write_wins (env RENTSYNC_CONFLICT_POLICY)")
	c.io.Println("  --log-level LEVEL          debug, info, warn, error (env RENTSYNC_LOG_LEVEL)")
	c.io.Println()
	c.io.Println("Commands:")
	c.io.Println("  register                              Register new account")
	c.io.Println("  login                                 Login to server")
	c.io.Println("  logout                                Forget local session")
	c.io.Println("  status                                Show session, queue and sync status")
	c.io.Println("  cart add|update|remove                Change cart lines")
	c.io.Println("  wishlist add|remove <product>         Change wishlist")
	c.io.Println("  reserve create|update|cancel          Change reservations")
	c.io.Println("  sync                                  Send queued changes to server")
	c.io.Println("  conflicts                             List open conflicts")
	c.io.Println("  resolve <id> keep-local|keep-remote|merge [--payload JSON]")
	c.io.Println("  purge [--older-than 24h]              Remove old synced entries from the queue")
	c.io.Println("  watch                                 Sync in background until interrupted")
	c.io.Println()
	c.io.Println("Examples:")
	c.io.Println("  rentsync cart add --product dress-1 --size M --days 4")
	c.io.Println("  rentsync wishlist add bag-7 --note 'for the gala'")
	c.io.Println("  rentsync reserve create --product dress-1 --start 2025-04-01 --end 2025-04-05")
	c.io.Println("  rentsync resolve 5f0c... keep-local")
}
