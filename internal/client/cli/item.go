package cli

import (
	"context"
	"fmt"
	"os"
)

func (a *App) list(ctx context.Context) {
	sites, err := a.creds.Websites(ctx)
	if err != nil {
		fmt.Println("List failed:", err)
		return
	}
	if len(sites) == 0 {
		fmt.Println("Vault is empty")
		return
	}
	for _, site := range sites {
		fmt.Println(site)
	}
}

func (a *App) show(ctx context.Context, website string) {
	cred, err := a.creds.Get(ctx, website)
	if err != nil {
		fmt.Println("Lookup failed:", err)
		return
	}
	fmt.Printf("%s\nusername: %s\npassword: %s\n", website, cred.Username, cred.Password)
}

func (a *App) copy(ctx context.Context, website string) {
	cred, err := a.creds.Get(ctx, website)
	if err != nil {
		fmt.Println("Lookup failed:", err)
		return
	}
	if err := a.clip.Copy(cred.Password); err != nil {
		fmt.Println("Copy failed:", err)
		return
	}
	fmt.Println("Password copied, clipboard clears after",
		a.config.ClipboardClearAfter)
}

func (a *App) add(ctx context.Context) {
	website, err := GetSimpleText(a.reader, "Website", os.Stdout)
	if err != nil {
		return
	}
	username, err := GetSimpleText(a.reader, "Username", os.Stdout)
	if err != nil {
		return
	}
	password, err := GetPassword("Password", os.Stdout)
	if err != nil {
		return
	}

	if err := a.creds.Add(ctx, website, username, password); err != nil {
		fmt.Println("Add failed:", err)
		return
	}
	fmt.Println("Stored", website)
}

func (a *App) update(ctx context.Context) {
	website, err := GetSimpleText(a.reader, "Website", os.Stdout)
	if err != nil {
		return
	}
	username, err := GetSimpleText(a.reader, "Username", os.Stdout)
	if err != nil {
		return
	}
	password, err := GetPassword("New password", os.Stdout)
	if err != nil {
		return
	}

	if err := a.creds.Modify(ctx, website, username, password); err != nil {
		fmt.Println("Update failed:", err)
		return
	}
	fmt.Println("Updated", website)
}

func (a *App) delete(ctx context.Context, website string) {
	if err := a.creds.Delete(ctx, website); err != nil {
		fmt.Println("Delete failed:", err)
		return
	}
	fmt.Println("Deleted", website)
}

func (a *App) runSync(ctx context.Context) {
	if err := a.sync.Sync(ctx); err != nil {
		fmt.Println("Sync failed:", err)
		return
	}
	fmt.Println("Synced")
}
