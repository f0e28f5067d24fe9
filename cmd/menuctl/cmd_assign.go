package main

import (
	"context"
	"fmt"

	"github.com/YspCoder/menuctl/pkg/richmenu"
)

func (a *app) defaultCmd(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usage("default get|set <richMenuId>|clear")
	}
	switch args[0] {
	case "get":
		id, err := a.client.GetDefaultMenu(ctx)
		if richmenu.IsNotFound(err) {
			fmt.Fprintln(a.out, dimStyle.Render("no default rich menu"))
			return nil
		}
		if err != nil {
			return err
		}
		fmt.Fprintln(a.out, idStyle.Render(id))
		return nil
	case "set":
		if len(args) != 2 {
			return usage("default set <richMenuId>")
		}
		if err := a.client.SetDefaultMenu(ctx, args[1]); err != nil {
			return err
		}
		a.ok("Default rich menu set to %s", args[1])
		return nil
	case "clear":
		if err := a.client.ClearDefaultMenu(ctx); err != nil {
			return err
		}
		a.ok("Default rich menu cleared")
		return nil
	default:
		return usage("default get|set <richMenuId>|clear")
	}
}

func (a *app) userCmd(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return usage("user get|link|unlink <userId> [richMenuId]")
	}
	userID := args[1]
	switch args[0] {
	case "get":
		id, err := a.client.GetUserMenu(ctx, userID)
		if err != nil {
			return err
		}
		fmt.Fprintln(a.out, idStyle.Render(id))
		return nil
	case "link":
		if len(args) != 3 {
			return usage("user link <userId> <richMenuId>")
		}
		if err := a.client.LinkUser(ctx, userID, args[2]); err != nil {
			return err
		}
		a.ok("Linked %s to %s", userID, args[2])
		return nil
	case "unlink":
		if err := a.client.UnlinkUser(ctx, userID); err != nil {
			return err
		}
		a.ok("Unlinked %s", userID)
		return nil
	default:
		return usage("user get|link|unlink <userId> [richMenuId]")
	}
}

func (a *app) bulkCmd(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usage("bulk link <richMenuId> <userId>... | bulk unlink <userId>...")
	}
	switch args[0] {
	case "link":
		if len(args) < 3 {
			return usage("bulk link <richMenuId> <userId>...")
		}
		if err := a.client.BulkLink(ctx, args[1], args[2:]); err != nil {
			return err
		}
		a.ok("Linked %d users to %s", len(args)-2, args[1])
		return nil
	case "unlink":
		if len(args) < 2 {
			return usage("bulk unlink <userId>...")
		}
		if err := a.client.BulkUnlink(ctx, args[1:]); err != nil {
			return err
		}
		a.ok("Unlinked %d users", len(args)-1)
		return nil
	default:
		return usage("bulk link|unlink ...")
	}
}

func (a *app) aliasCmd(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usage("alias list|get|create|update|delete")
	}
	switch args[0] {
	case "list":
		aliases, err := a.client.ListAliases(ctx)
		if err != nil {
			return err
		}
		if len(aliases) == 0 {
			fmt.Fprintln(a.out, dimStyle.Render("no aliases"))
			return nil
		}
		for _, al := range aliases {
			fmt.Fprintf(a.out, "%s %s\n", labelStyle.Render(al.RichMenuAliasID), idStyle.Render(al.RichMenuID))
		}
		return nil
	case "get":
		if len(args) != 2 {
			return usage("alias get <aliasId>")
		}
		alias, err := a.client.GetAlias(ctx, args[1])
		if err != nil {
			return err
		}
		return a.printJSON(alias)
	case "create", "update":
		if len(args) != 3 {
			return usage("alias %s <aliasId> <richMenuId>", args[0])
		}
		var err error
		if args[0] == "create" {
			err = a.client.CreateAlias(ctx, args[1], args[2])
		} else {
			err = a.client.UpdateAlias(ctx, args[1], args[2])
		}
		if err != nil {
			return err
		}
		a.ok("Alias %s -> %s", args[1], args[2])
		return nil
	case "delete":
		if len(args) != 2 {
			return usage("alias delete <aliasId>")
		}
		if err := a.client.DeleteAlias(ctx, args[1]); err != nil {
			return err
		}
		a.ok("Deleted alias %s", args[1])
		return nil
	default:
		return usage("alias list|get|create|update|delete")
	}
}
