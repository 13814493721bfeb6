package cli

import (
	"context"
	"flag"
	"fmt"
	"io"

	"github.com/iudanet/rentsync/internal/models"
)

func (c *Cli) printQueued(item *models.QueueItem) {
	c.io.Printf("✓ Queued %s %s (change %s)\n", item.Operation, item.Entity(), item.ID)
}

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

// parseInterspersed разбирает флаги, стоящие до и после позиционных аргументов
func parseInterspersed(fs *flag.FlagSet, args []string) ([]string, error) {
	var positional []string
	for {
		if err := fs.Parse(args); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrUsage, err)
		}
		args = fs.Args()
		if len(args) == 0 {
			return positional, nil
		}
		positional = append(positional, args[0])
		args = args[1:]
	}
}

func cartFlags(name string, item *models.CartItem) *flag.FlagSet {
	fs := newFlagSet(name)
	fs.StringVar(&item.ProductID, "product", "", "product id")
	fs.StringVar(&item.Size, "size", "", "size")
	fs.IntVar(&item.Quantity, "qty", 1, "quantity")
	fs.IntVar(&item.RentalDays, "days", 4, "rental period: 4, 8, 14 or 30 days")
	return fs
}

func (c *Cli) runCart(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: usage: rentsync cart add|update|remove", ErrUsage)
	}

	var item models.CartItem
	pos, err := parseInterspersed(cartFlags("cart "+args[0], &item), args[1:])
	if err != nil {
		return err
	}

	var queued *models.QueueItem
	switch args[0] {
	case "add":
		queued, err = c.Shop.AddToCart(ctx, item)
	case "update":
		if len(pos) != 1 {
			return fmt.Errorf("%w: usage: rentsync cart update <line-id> --product ID [--size S] [--qty N] [--days D]", ErrUsage)
		}
		queued, err = c.Shop.UpdateCartItem(ctx, pos[0], item)
	case "remove":
		if len(pos) != 1 {
			return fmt.Errorf("%w: usage: rentsync cart remove <line-id>", ErrUsage)
		}
		queued, err = c.Shop.RemoveFromCart(ctx, pos[0])
	default:
		return fmt.Errorf("%w: cart %s", ErrUnknownCommand, args[0])
	}
	if err != nil {
		return err
	}
	c.printQueued(queued)
	return nil
}

func (c *Cli) runWishlist(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: usage: rentsync wishlist add|remove <product>", ErrUsage)
	}

	var note string
	fs := newFlagSet("wishlist " + args[0])
	fs.StringVar(&note, "note", "", "note")
	pos, err := parseInterspersed(fs, args[1:])
	if err != nil {
		return err
	}
	if len(pos) != 1 {
		return fmt.Errorf("%w: usage: rentsync wishlist %s <product>", ErrUsage, args[0])
	}

	var queued *models.QueueItem
	switch args[0] {
	case "add":
		queued, err = c.Shop.AddToWishlist(ctx, models.WishlistItem{ProductID: pos[0], Note: note})
	case "remove":
		queued, err = c.Shop.RemoveFromWishlist(ctx, pos[0])
	default:
		return fmt.Errorf("%w: wishlist %s", ErrUnknownCommand, args[0])
	}
	if err != nil {
		return err
	}
	c.printQueued(queued)
	return nil
}

func (c *Cli) runReserve(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: usage: rentsync reserve create|update|cancel", ErrUsage)
	}

	var r models.Reservation
	fs := newFlagSet("reserve " + args[0])
	fs.StringVar(&r.ProductID, "product", "", "product id")
	fs.StringVar(&r.Size, "size", "", "size")
	fs.StringVar(&r.StartDate, "start", "", "first day, YYYY-MM-DD")
	fs.StringVar(&r.EndDate, "end", "", "last day, YYYY-MM-DD")
	pos, err := parseInterspersed(fs, args[1:])
	if err != nil {
		return err
	}

	var queued *models.QueueItem
	switch args[0] {
	case "create":
		queued, err = c.Shop.CreateReservation(ctx, r)
	case "update", "cancel":
		if len(pos) != 1 {
			return fmt.Errorf("%w: usage: rentsync reserve %s <reservation-id> --product ID --start DATE --end DATE", ErrUsage, args[0])
		}
		if args[0] == "update" {
			queued, err = c.Shop.UpdateReservation(ctx, pos[0], r)
		} else {
			queued, err = c.Shop.CancelReservation(ctx, pos[0], r)
		}
	default:
		return fmt.Errorf("%w: reserve %s", ErrUnknownCommand, args[0])
	}
	if err != nil {
		return err
	}
	c.printQueued(queued)
	return nil
}
