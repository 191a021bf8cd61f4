package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/example/order-engine/internal/command"
	"github.com/example/order-engine/internal/domain/cart"
	"github.com/example/order-engine/internal/domain/inventory"
	"github.com/example/order-engine/internal/domain/order"
	"github.com/shopspring/decimal"
	"github.com/urfave/cli/v2"
)

var selectionFlags = []cli.Flag{
	&cli.StringFlag{Name: "product", Required: true, Usage: "product id"},
	&cli.StringFlag{Name: "variant", Usage: "variant id"},
	&cli.StringSliceFlag{Name: "choice", Usage: "OPTION=CHOICE_ID, repeatable"},
	&cli.StringFlag{Name: "number", Usage: "OPTION=AMOUNT"},
	&cli.StringFlag{Name: "text", Usage: "OPTION=TEXT"},
	&cli.IntFlag{Name: "quantity", Value: 1},
}

var orderFlag = &cli.StringFlag{Name: "order", Required: true, Usage: "order id"}

func validateCommand() *cli.Command {
	return &cli.Command{
		Name:  "validate",
		Usage: "check a selection against its product's option rules",
		Flags: selectionFlags,
		Action: func(c *cli.Context) error {
			req, err := requestFromFlags(c)
			if err != nil {
				return err
			}
			return withEngine(c, func(ctx context.Context, h *command.Handler) error {
				check, err := h.ValidateSelection(ctx, req)
				if err != nil {
					return err
				}
				return printJSON(c, check)
			})
		},
	}
}

func priceCommand() *cli.Command {
	return &cli.Command{
		Name:  "price",
		Usage: "price a selection",
		Flags: selectionFlags,
		Action: func(c *cli.Context) error {
			req, err := requestFromFlags(c)
			if err != nil {
				return err
			}
			return withEngine(c, func(ctx context.Context, h *command.Handler) error {
				priced, err := h.PriceSelection(ctx, req)
				if err != nil {
					return err
				}
				return printJSON(c, priced)
			})
		},
	}
}

func diffCommand() *cli.Command {
	return &cli.Command{
		Name:  "diff",
		Usage: "show what replacing an order's items would change, without saving",
		Flags: []cli.Flag{
			orderFlag,
			&cli.StringFlag{Name: "items", Required: true, Usage: "JSON file with the edited items"},
		},
		Action: func(c *cli.Context) error {
			items, err := readItems(c.String("items"))
			if err != nil {
				return err
			}
			return withEngine(c, func(ctx context.Context, h *command.Handler) error {
				preview, err := h.ComputeOrderDiff(ctx, c.String("order"), items)
				if err != nil {
					return err
				}
				return printJSON(c, preview)
			})
		},
	}
}

func editCommand() *cli.Command {
	return &cli.Command{
		Name:  "edit",
		Usage: "replace an order's items and reconcile stock",
		Flags: []cli.Flag{
			orderFlag,
			&cli.StringFlag{Name: "items", Required: true, Usage: "JSON file with the edited items"},
			&cli.IntFlag{Name: "expected-version", Usage: "version the items were read at"},
		},
		Action: func(c *cli.Context) error {
			items, err := readItems(c.String("items"))
			if err != nil {
				return err
			}
			return withEngine(c, func(ctx context.Context, h *command.Handler) error {
				res, err := h.EditOrder(ctx, command.EditOrder{
					OrderID:         c.String("order"),
					ExpectedVersion: c.Int("expected-version"),
					Items:           items,
				}, nil)
				if err != nil {
					return err
				}
				printWarnings(c, res.Warnings)
				return printJSON(c, res)
			})
		},
	}
}

func planCommand() *cli.Command {
	return &cli.Command{
		Name:  "plan",
		Usage: "show the stock actions of an order status change",
		Flags: []cli.Flag{
			orderFlag,
			&cli.StringFlag{Name: "to", Required: true, Usage: "target order status"},
		},
		Action: func(c *cli.Context) error {
			return withEngine(c, func(ctx context.Context, h *command.Handler) error {
				plan, err := h.PlanInventoryActionsForStatusChange(ctx, c.String("order"), order.OrderStatus(c.String("to")))
				if err != nil {
					return err
				}
				return printJSON(c, plan)
			})
		},
	}
}

func transitionCommand() *cli.Command {
	return &cli.Command{
		Name:  "transition",
		Usage: "change one status dimension of an order",
		Flags: []cli.Flag{
			orderFlag,
			&cli.StringFlag{Name: "dimension", Value: string(order.DimensionOrder), Usage: "order_status, payment_status or fulfillment_status"},
			&cli.StringFlag{Name: "to", Required: true, Usage: "target status"},
		},
		Action: func(c *cli.Context) error {
			return withEngine(c, func(ctx context.Context, h *command.Handler) error {
				res, err := h.ApplyStatusTransition(ctx, command.ChangeStatus{
					OrderID: c.String("order"),
					Transition: order.Transition{
						Dimension: order.Dimension(c.String("dimension")),
						To:        c.String("to"),
					},
				}, nil)
				if err != nil {
					return err
				}
				printWarnings(c, res.Warnings)
				return printJSON(c, res)
			})
		},
	}
}

func retryCommand() *cli.Command {
	return &cli.Command{
		Name:  "retry",
		Usage: "retry a failed side effect of an order",
		Flags: []cli.Flag{
			orderFlag,
			&cli.StringFlag{Name: "action", Required: true, Usage: "deduct, restock, pay or refund"},
		},
		Action: func(c *cli.Context) error {
			return withEngine(c, func(ctx context.Context, h *command.Handler) error {
				res, err := h.RetrySideEffect(ctx, command.RetrySideEffect{
					OrderID: c.String("order"),
					Action:  inventory.Action(c.String("action")),
				}, nil)
				if err != nil {
					return err
				}
				printWarnings(c, res.Warnings)
				return printJSON(c, res)
			})
		},
	}
}

func requestFromFlags(c *cli.Context) (cart.Request, error) {
	req := cart.Request{
		ProductID: c.String("product"),
		VariantID: c.String("variant"),
		Quantity:  c.Int("quantity"),
	}
	for _, raw := range c.StringSlice("choice") {
		option, choice, err := splitPair(raw)
		if err != nil {
			return req, err
		}
		req.Choices = append(req.Choices, cart.ChoiceRef{Option: option, ChoiceID: choice})
	}
	if raw := c.String("number"); raw != "" {
		option, value, err := splitPair(raw)
		if err != nil {
			return req, err
		}
		amount, err := decimal.NewFromString(value)
		if err != nil {
			return req, fmt.Errorf("number %q: %w", value, err)
		}
		req.Number = &cart.NumberAnswer{OptionName: option, Amount: &amount}
	}
	if raw := c.String("text"); raw != "" {
		option, value, err := splitPair(raw)
		if err != nil {
			return req, err
		}
		req.Text = &cart.TextAnswer{OptionName: option, Text: value}
	}
	return req, nil
}

func splitPair(raw string) (string, string, error) {
	key, value, ok := strings.Cut(raw, "=")
	if !ok || key == "" {
		return "", "", fmt.Errorf("expected OPTION=VALUE, got %q", raw)
	}
	return key, value, nil
}

func readItems(path string) ([]cart.Selection, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var items []cart.Selection
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return items, nil
}

func printJSON(c *cli.Context, v any) error {
	enc := json.NewEncoder(c.App.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printWarnings(c *cli.Context, warnings []string) {
	for _, w := range warnings {
		fmt.Fprintln(c.App.ErrWriter, "warning:", w)
	}
}
