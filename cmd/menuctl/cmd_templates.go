package main

import (
	"context"
	"fmt"

	"github.com/YspCoder/menuctl/pkg/richmenu"
)

func (a *app) templatesCmd(ctx context.Context, args []string) error {
	if len(args) == 0 {
		args = []string{"list"}
	}
	switch args[0] {
	case "list":
		names, err := a.store.List()
		if err != nil {
			return err
		}
		if len(names) == 0 {
			fmt.Fprintln(a.out, dimStyle.Render("no templates in "+a.store.Dir()))
			return nil
		}
		for _, name := range names {
			fmt.Fprintln(a.out, name)
		}
		return nil
	case "show":
		if len(args) != 2 {
			return usage("templates show <name>")
		}
		menu, err := a.store.Load(args[1])
		if err != nil {
			return err
		}
		return a.printJSON(menu)
	case "save":
		return a.templateSaveCmd(ctx, args[1:])
	case "delete":
		if len(args) != 2 {
			return usage("templates delete <name>")
		}
		if err := a.store.Delete(args[1]); err != nil {
			return err
		}
		a.ok("Deleted template %s", args[1])
		return nil
	default:
		return usage("templates list|show|save|delete")
	}
}

// templateSaveCmd stores a definition file, or an existing remote menu via
// --from <richMenuId>.
func (a *app) templateSaveCmd(ctx context.Context, args []string) error {
	fromID, rest, fromRemote := takeFlag(args, "from")
	if len(rest) == 0 || (!fromRemote && len(rest) != 2) {
		return usage("templates save <name> <file.json> | templates save <name> --from <richMenuId>")
	}
	name := rest[0]

	var (
		menu *richmenu.RichMenu
		err  error
	)
	if fromRemote {
		menu, err = a.client.GetMenu(ctx, fromID)
	} else {
		menu, err = readMenuFile(rest[1])
	}
	if err != nil {
		return err
	}
	if err := menu.Check(a.client.AllowedSizes()); err != nil {
		return err
	}
	if err := a.store.Save(name, menu); err != nil {
		return err
	}
	a.ok("Saved template %s", name)
	return nil
}
