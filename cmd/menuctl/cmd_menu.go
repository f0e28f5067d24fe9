package main

import (
	"context"
	"fmt"
	"os"

	"github.com/YspCoder/menuctl/pkg/richmenu"
)

func (a *app) listCmd(ctx context.Context) error {
	menus, err := a.client.ListMenus(ctx)
	if err != nil {
		return err
	}
	defaultID, err := a.client.GetDefaultMenu(ctx)
	if err != nil && !richmenu.IsNotFound(err) {
		return err
	}
	renderMenuTable(a.out, menus, defaultID)
	return nil
}

func (a *app) getCmd(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return usage("get <richMenuId>")
	}
	menu, err := a.client.GetMenu(ctx, args[0])
	if err != nil {
		return err
	}
	return a.printJSON(menu)
}

// menuFromArgs resolves "<file.json>" or "--template <name>".
func (a *app) menuFromArgs(args []string, cmd string) (*richmenu.RichMenu, []string, error) {
	name, rest, fromTemplate := takeFlag(args, "template")
	if fromTemplate {
		menu, err := a.store.Load(name)
		return menu, rest, err
	}
	if len(rest) == 0 {
		return nil, nil, usage("%s <file.json>|--template <name>", cmd)
	}
	menu, err := readMenuFile(rest[0])
	return menu, rest[1:], err
}

func (a *app) createCmd(ctx context.Context, args []string) error {
	image, args, withImage := takeFlag(args, "image")
	menu, _, err := a.menuFromArgs(args, "create")
	if err != nil {
		return err
	}
	if err := menu.Check(a.client.AllowedSizes()); err != nil {
		return err
	}

	id, err := a.client.CreateMenu(ctx, menu)
	if err != nil {
		return err
	}
	a.ok("Created rich menu %s", idStyle.Render(id))

	if withImage {
		if err := a.client.UploadImageFile(ctx, id, image); err != nil {
			return fmt.Errorf("menu %s created but image upload failed: %w", id, err)
		}
		a.ok("Uploaded %s", image)
	}
	return nil
}

func (a *app) validateCmd(ctx context.Context, args []string) error {
	menu, _, err := a.menuFromArgs(args, "validate")
	if err != nil {
		return err
	}
	if err := menu.Check(a.client.AllowedSizes()); err != nil {
		return err
	}
	if err := a.client.ValidateMenu(ctx, menu); err != nil {
		return err
	}
	a.ok("Rich menu %q is valid", menu.Name)
	return nil
}

func (a *app) deleteCmd(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usage("delete <richMenuId>...")
	}
	for _, id := range args {
		if err := a.client.DeleteMenu(ctx, id); err != nil {
			return err
		}
		a.ok("Deleted %s", id)
	}
	return nil
}

func (a *app) uploadCmd(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return usage("upload <richMenuId> <image.png|image.jpg>")
	}
	if err := a.client.UploadImageFile(ctx, args[0], args[1]); err != nil {
		return err
	}
	a.ok("Uploaded %s to %s", args[1], args[0])
	return nil
}

func (a *app) downloadCmd(ctx context.Context, args []string) error {
	if len(args) < 1 || len(args) > 2 {
		return usage("download <richMenuId> [out]")
	}
	img, err := a.client.DownloadImage(ctx, args[0])
	if err != nil {
		return err
	}

	out := ""
	if len(args) == 2 {
		out = args[1]
	} else {
		ext := ".png"
		if img.ContentType == richmenu.ContentTypeJPEG {
			ext = ".jpg"
		}
		out = args[0] + ext
	}
	if err := os.WriteFile(out, img.Data, 0644); err != nil {
		return fmt.Errorf("write image: %w", err)
	}
	a.ok("Saved %d bytes (%s) to %s", len(img.Data), img.ContentType, out)
	return nil
}
