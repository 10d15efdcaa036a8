package commands

import (
	"fmt"
	"strings"
)

// command describes one chat command: its argument names for the usage line
// and its help text. Optional arguments are marked per name.
type command struct {
	name     string
	args     []string
	optional bool // the trailing argument may be omitted
	help     string
}

// The command set is closed; unknown commands are rejected with the help
// text. Help strings are user facing and stay in the bot's language.
var commandTable = []command{
	{name: "help", help: "Listázza az elérhető parancsokat."},
	{name: "add", args: []string{"url"}, help: "Felvesz egy új hirdetésfigyelőt."},
	{name: "remove", args: []string{"watch_id"}, help: "Töröl egy létező hirdetésfigyelőt."},
	{name: "list", help: "Listázza a felvett hirdetésfigyelőket."},
	{name: "info", args: []string{"watch_id"}, help: "Lekéri egy hirdetésfigyelő adatait."},
	{name: "seturl", args: []string{"watch_id", "url"}, help: "Módosítja egy hirdetésfigyelő URL-jét."},
	{name: "notifyon", args: []string{"watch_id"}, help: "Beállítja a jelenlegi chat-et az értesítések megjelenítésehez."},
	{name: "setwebhook", args: []string{"watch_id", "url"}, help: "Beállítja a webhookot egy hirdetésfigyelőhöz."},
	{name: "unsetwebhook", args: []string{"watch_id"}, help: "Kitörli a webhookot egy hirdetésfigyelőtől."},
	{name: "rescrape", args: []string{"watch_id"}, optional: true, help: "Törli a mentett hirdetéseket és újra lekéri azokat."},
	{name: "listads", args: []string{"watch_id"}, help: "Lekéri az hirdetésfigyelőhöz tarozó hirdetéseket."},
	{name: "adinfo", args: []string{"ad_id"}, help: "Lekéri a hirdetés adatait."},
	{name: "setpricealert", args: []string{"ad_id"}, help: "Beállít árváltozás értesítőt egy hirtetéshez."},
	{name: "unsetpricealert", args: []string{"ad_id"}, help: "Kikapcsolja az árváltozás értesítőt egy hirtetésnél."},
	{name: "settings", help: "Lekéri a bot beállításait."},
	{name: "setprefix", args: []string{"prefix"}, help: "Módosítja a parancs prefixumot."},
	{name: "setinterval", args: []string{"interval"}, help: "Beállítja a frissítés gyakoriságát másodpercekben."},
}

func lookupCommand(name string) *command {
	for i := range commandTable {
		if commandTable[i].name == name {
			return &commandTable[i]
		}
	}
	return nil
}

func (c *command) usage(prefix string) string {
	parts := []string{prefix + c.name}
	for _, arg := range c.args {
		parts = append(parts, "<"+arg+">")
	}
	return strings.Join(parts, " ")
}

func (c *command) accepts(argc int) bool {
	if c.optional {
		return argc == len(c.args) || argc == len(c.args)-1
	}
	return argc == len(c.args)
}

func helpText(prefix string) string {
	var b strings.Builder
	b.WriteString("Elérhető parancsok:")
	for _, cmd := range commandTable {
		fmt.Fprintf(&b, "\n  %-25s | %s", cmd.usage(prefix), cmd.help)
	}
	return b.String()
}
