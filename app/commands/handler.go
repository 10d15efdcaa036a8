package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/mopihu/pyhabot/app/config"
	"github.com/mopihu/pyhabot/app/database"
	"github.com/mopihu/pyhabot/app/integration"
	"github.com/mopihu/pyhabot/app/scraper"
)

// WatchChecker triggers an immediate scrape of a watch, as the scheduler
// would, so commands like add and rescrape can report results right away.
type WatchChecker interface {
	CheckWatch(ctx context.Context, watch *database.Watch) (int, error)
}

// Handler interprets chat messages as bot commands and executes them.
type Handler struct {
	settings  *config.Store
	watchRepo database.WatchRepository
	adRepo    database.AdRepository
	checker   WatchChecker
	chat      integration.Integration
}

func NewHandler(settings *config.Store, watchRepo database.WatchRepository,
	adRepo database.AdRepository, checker WatchChecker, chat integration.Integration) *Handler {
	return &Handler{
		settings:  settings,
		watchRepo: watchRepo,
		adRepo:    adRepo,
		checker:   checker,
		chat:      chat,
	}
}

// HandleMessage parses a message and runs the matching command. Messages
// without the command prefix are ignored.
func (h *Handler) HandleMessage(ctx context.Context, msg integration.IncomingMessage) {
	prefix := h.settings.Get().CommandsPrefix

	fields := strings.Fields(msg.Text())
	if len(fields) == 0 || !strings.HasPrefix(fields[0], prefix) {
		return
	}

	name := strings.TrimPrefix(fields[0], prefix)
	args := fields[1:]

	cmd := lookupCommand(name)
	if cmd == nil {
		h.reply(ctx, msg, fmt.Sprintf("Ismeretlen parancs: `%s`. Használd a `%shelp` parancsot!", name, prefix))
		return
	}
	if !cmd.accepts(len(args)) {
		h.reply(ctx, msg, fmt.Sprintf("Hibás paraméterezés. Használat: `%s`", cmd.usage(prefix)))
		return
	}

	slog.Debug("Handling command", "command", name, "args", args)

	var err error
	switch name {
	case "help":
		h.reply(ctx, msg, fmt.Sprintf("```\n%s```", helpText(prefix)))
	case "add":
		err = h.handleAdd(ctx, msg, args[0])
	case "remove":
		err = h.handleRemove(ctx, msg, args[0])
	case "list":
		err = h.handleList(ctx, msg)
	case "info":
		err = h.handleInfo(ctx, msg, args[0])
	case "seturl":
		err = h.handleSetURL(ctx, msg, args[0], args[1])
	case "notifyon":
		err = h.handleNotifyOn(ctx, msg, args[0])
	case "setwebhook":
		err = h.handleSetWebhook(ctx, msg, args[0], args[1])
	case "unsetwebhook":
		err = h.handleUnsetWebhook(ctx, msg, args[0])
	case "rescrape":
		err = h.handleRescrape(ctx, msg, args)
	case "listads":
		err = h.handleListAds(ctx, msg, args[0])
	case "adinfo":
		err = h.handleAdInfo(ctx, msg, args[0])
	case "setpricealert":
		err = h.handleSetPriceAlert(ctx, msg, args[0], true)
	case "unsetpricealert":
		err = h.handleSetPriceAlert(ctx, msg, args[0], false)
	case "settings":
		h.handleSettings(ctx, msg)
	case "setprefix":
		err = h.handleSetPrefix(ctx, msg, args[0])
	case "setinterval":
		err = h.handleSetInterval(ctx, msg, args[0])
	}

	if err != nil {
		slog.Error("Command failed", "command", name, "error", err)
		h.reply(ctx, msg, "Hiba történt a parancs végrehajtása közben.")
	}
}

func (h *Handler) reply(ctx context.Context, msg integration.IncomingMessage, text string) {
	h.replyOpts(ctx, msg, text, false)
}

func (h *Handler) replyOpts(ctx context.Context, msg integration.IncomingMessage, text string, noPreview bool) {
	if err := msg.SendBack(ctx, text, noPreview); err != nil {
		slog.Error("Failed to send reply", "error", err)
	}
}

func (h *Handler) handleAdd(ctx context.Context, msg integration.IncomingMessage, url string) error {
	id, err := h.watchRepo.AddWatch(url)
	if err != nil {
		return err
	}
	if err := h.watchRepo.SetNotifyTarget(id, msg.ChannelID(), h.chat.Name()); err != nil {
		return err
	}

	watch, err := h.watchRepo.GetWatch(id)
	if err != nil {
		return err
	}
	if _, err := h.checker.CheckWatch(ctx, watch); err != nil {
		slog.Error("Initial scrape of new watch failed", "watch_id", id, "error", err)
	}

	h.reply(ctx, msg, fmt.Sprintf("Sikeresen hozzáadva! - ID: `%d`", id))
	return nil
}

func (h *Handler) handleRemove(ctx context.Context, msg integration.IncomingMessage, rawID string) error {
	id, ok := h.parseID(ctx, msg, rawID)
	if !ok {
		return nil
	}

	err := h.watchRepo.RemoveWatch(id)
	if errors.Is(err, database.ErrNotFound) {
		h.reply(ctx, msg, fmt.Sprintf("ID: `%d` nem létezik. Sikertelen törlés.", id))
		return nil
	}
	if err != nil {
		return err
	}

	h.reply(ctx, msg, fmt.Sprintf("Sikeresen törölve! - ID: `%d`", id))
	return nil
}

func (h *Handler) handleList(ctx context.Context, msg integration.IncomingMessage) error {
	watches, err := h.watchRepo.GetAllWatches()
	if err != nil {
		return err
	}
	if len(watches) == 0 {
		h.reply(ctx, msg, "Nincs még felvett hirdetésfigyelő!")
		return nil
	}

	var b strings.Builder
	for _, watch := range watches {
		stext, _, _ := scraper.SearchParams(watch.URL)
		fmt.Fprintf(&b, "ID: `%d` - [%s](%s)\n", watch.ID, stext, watch.URL)
	}
	h.replyOpts(ctx, msg, b.String(), true)
	return nil
}

func (h *Handler) handleInfo(ctx context.Context, msg integration.IncomingMessage, rawID string) error {
	id, ok := h.parseID(ctx, msg, rawID)
	if !ok {
		return nil
	}

	watch, err := h.watchRepo.GetWatch(id)
	if err != nil {
		return err
	}
	if watch == nil {
		h.reply(ctx, msg, fmt.Sprintf("ID: `%d` nem létezik.", id))
		return nil
	}

	active, err := h.adRepo.GetActiveAds(id)
	if err != nil {
		return err
	}
	all, err := h.adRepo.GetAllAds(id)
	if err != nil {
		return err
	}

	stext, minPrice, maxPrice := scraper.SearchParams(watch.URL)
	notifyOn := "None"
	if watch.NotifyIntegration != nil {
		notifyOn = *watch.NotifyIntegration
	}
	webhook := "None"
	if watch.Webhook != nil {
		webhook = "set"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "ID: `%d`\n", watch.ID)
	fmt.Fprintf(&b, "Search text: %s\n", stext)
	fmt.Fprintf(&b, "Price limit: %s - %s Ft\n", minPrice, maxPrice)
	fmt.Fprintf(&b, "Notify on: %s\n", notifyOn)
	fmt.Fprintf(&b, "Webhook: %s\n", webhook)
	fmt.Fprintf(&b, "Number of active ads: %d (all: %d)\n", len(active), len(all))
	fmt.Fprintf(&b, "[link](%s)\n", watch.URL)
	h.replyOpts(ctx, msg, b.String(), true)
	return nil
}

func (h *Handler) handleSetURL(ctx context.Context, msg integration.IncomingMessage, rawID, url string) error {
	id, ok := h.parseID(ctx, msg, rawID)
	if !ok {
		return nil
	}

	err := h.watchRepo.SetURL(id, url)
	if errors.Is(err, database.ErrNotFound) {
		h.reply(ctx, msg, fmt.Sprintf("ID: `%d` nem létezik. Sikertelen módosítás.", id))
		return nil
	}
	if err != nil {
		return err
	}

	// The stored ads belong to the old search; drop them and let the next
	// cycle rebuild from the new URL.
	if err := h.adRepo.ClearAds(id); err != nil {
		return err
	}
	if err := h.watchRepo.ResetLastChecked(id); err != nil {
		return err
	}

	h.reply(ctx, msg, fmt.Sprintf("URL módosítva! - ID: `%d`", id))
	return nil
}

func (h *Handler) handleNotifyOn(ctx context.Context, msg integration.IncomingMessage, rawID string) error {
	id, ok := h.parseID(ctx, msg, rawID)
	if !ok {
		return nil
	}

	err := h.watchRepo.SetNotifyTarget(id, msg.ChannelID(), h.chat.Name())
	if errors.Is(err, database.ErrNotFound) {
		h.reply(ctx, msg, fmt.Sprintf("ID: `%d` nem létezik. Sikertelen módosítás.", id))
		return nil
	}
	if err != nil {
		return err
	}

	h.reply(ctx, msg, fmt.Sprintf("Értesítés beállítva! - ID: `%d`", id))
	return nil
}

func (h *Handler) handleSetWebhook(ctx context.Context, msg integration.IncomingMessage, rawID, url string) error {
	id, ok := h.parseID(ctx, msg, rawID)
	if !ok {
		return nil
	}

	err := h.watchRepo.SetWebhook(id, url)
	if errors.Is(err, database.ErrNotFound) {
		h.reply(ctx, msg, fmt.Sprintf("ID: `%d` nem létezik. Sikertelen módosítás.", id))
		return nil
	}
	if err != nil {
		return err
	}

	h.reply(ctx, msg, fmt.Sprintf("Webhook URL beállítva! - ID: `%d`", id))
	return nil
}

func (h *Handler) handleUnsetWebhook(ctx context.Context, msg integration.IncomingMessage, rawID string) error {
	id, ok := h.parseID(ctx, msg, rawID)
	if !ok {
		return nil
	}

	err := h.watchRepo.ClearWebhook(id)
	if errors.Is(err, database.ErrNotFound) {
		h.reply(ctx, msg, fmt.Sprintf("ID: `%d` nem létezik. Sikertelen módosítás.", id))
		return nil
	}
	if err != nil {
		return err
	}

	h.reply(ctx, msg, fmt.Sprintf("Webhook URL törölve! - ID: `%d`", id))
	return nil
}

func (h *Handler) handleRescrape(ctx context.Context, msg integration.IncomingMessage, args []string) error {
	if len(args) == 0 {
		if err := h.adRepo.ClearAllAds(); err != nil {
			return err
		}
		if err := h.watchRepo.ResetAllLastChecked(); err != nil {
			return err
		}
		h.reply(ctx, msg, "Összes hirdetés újbóli átvizsgálása...")
		return nil
	}

	id, ok := h.parseID(ctx, msg, args[0])
	if !ok {
		return nil
	}

	watch, err := h.watchRepo.GetWatch(id)
	if err != nil {
		return err
	}
	if watch == nil {
		h.reply(ctx, msg, fmt.Sprintf("ID: `%d` nem létezik.", id))
		return nil
	}

	if err := h.adRepo.ClearAds(id); err != nil {
		return err
	}
	if err := h.watchRepo.ResetLastChecked(id); err != nil {
		return err
	}
	if _, err := h.checker.CheckWatch(ctx, watch); err != nil {
		slog.Error("Rescrape of watch failed", "watch_id", id, "error", err)
	}

	h.reply(ctx, msg, fmt.Sprintf("ID: `%d` hirdetésújbóli átvizsgálása...", id))
	return nil
}

func (h *Handler) handleListAds(ctx context.Context, msg integration.IncomingMessage, rawID string) error {
	id, ok := h.parseID(ctx, msg, rawID)
	if !ok {
		return nil
	}

	active, err := h.adRepo.GetActiveAds(id)
	if err != nil {
		return err
	}
	inactive, err := h.adRepo.GetInactiveAds(id)
	if err != nil {
		return err
	}

	var b strings.Builder
	for _, ad := range active {
		fmt.Fprintf(&b, "ID: `%d` - [%s](%s) - %s Ft\n", ad.ID, ad.Title, ad.URL, formatPrice(ad.Price))
	}
	if len(inactive) > 0 {
		b.WriteString("\nInaktív hirdetések:\n")
		for _, ad := range inactive {
			fmt.Fprintf(&b, "ID: `%d` - [%s](%s) - %s Ft\n", ad.ID, ad.Title, ad.URL, formatPrice(ad.Price))
		}
	}

	if b.Len() == 0 {
		h.reply(ctx, msg, fmt.Sprintf("ID: `%d` vagy nem létezik a hirdetésfigyelő vagy nem tartoznak hozzá hirdetések.", id))
		return nil
	}

	h.replyOpts(ctx, msg, b.String(), true)
	return nil
}

func (h *Handler) handleAdInfo(ctx context.Context, msg integration.IncomingMessage, rawID string) error {
	id, ok := h.parseID(ctx, msg, rawID)
	if !ok {
		return nil
	}

	ad, err := h.adRepo.GetAd(id)
	if err != nil {
		return err
	}
	if ad == nil {
		h.reply(ctx, msg, fmt.Sprintf("ID: `%d` nem létezik.", id))
		return nil
	}

	active := "nem"
	if ad.Active {
		active = "igen"
	}
	date := ad.Date
	if ad.Pinned() {
		date = "Pinned"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "ID: `%d`\n", ad.ID)
	fmt.Fprintf(&b, "Cím: %s\n", ad.Title)
	fmt.Fprintf(&b, "Ár: %s Ft\n", formatPrice(ad.Price))
	fmt.Fprintf(&b, "Város: %s\n", ad.City)
	fmt.Fprintf(&b, "Utolsó up: %s\n", date)
	fmt.Fprintf(&b, "Feladó: %s (%s)\n", ad.SellerName, ad.SellerRating)
	fmt.Fprintf(&b, "Watch ID: `%d`\n", ad.WatchID)
	fmt.Fprintf(&b, "Aktív: %s\n", active)
	fmt.Fprintf(&b, "Korábbi árai: %s\n", formatPriceHistory(ad.PrevPrices))
	fmt.Fprintf(&b, "[link](%s)\n", ad.URL)
	h.reply(ctx, msg, b.String())
	return nil
}

func (h *Handler) handleSetPriceAlert(ctx context.Context, msg integration.IncomingMessage, rawID string, enabled bool) error {
	id, ok := h.parseID(ctx, msg, rawID)
	if !ok {
		return nil
	}

	err := h.adRepo.SetPriceAlert(id, enabled)
	if errors.Is(err, database.ErrNotFound) {
		h.reply(ctx, msg, fmt.Sprintf("ID: `%d` nem létezik. Sikertelen módosítás.", id))
		return nil
	}
	if err != nil {
		return err
	}

	if enabled {
		h.reply(ctx, msg, fmt.Sprintf("Árváltozás követés beállítva! - ID: `%d`", id))
	} else {
		h.reply(ctx, msg, fmt.Sprintf("Árváltozás követés kikapcsolva! - ID: `%d`", id))
	}
	return nil
}

func (h *Handler) handleSettings(ctx context.Context, msg integration.IncomingMessage) {
	st := h.settings.Get()

	var b strings.Builder
	fmt.Fprintf(&b, "- Integration: %s\n", h.chat.Name())
	fmt.Fprintf(&b, "- Commands prefix: %s\n", st.CommandsPrefix)
	fmt.Fprintf(&b, "- Refresh interval: %d sec", st.RefreshInterval)
	h.reply(ctx, msg, b.String())
}

func (h *Handler) handleSetPrefix(ctx context.Context, msg integration.IncomingMessage, prefix string) error {
	if err := h.settings.SetCommandsPrefix(prefix); err != nil {
		return err
	}
	h.reply(ctx, msg, fmt.Sprintf("Prefix módosítva: `%s`", prefix))
	return nil
}

func (h *Handler) handleSetInterval(ctx context.Context, msg integration.IncomingMessage, rawInterval string) error {
	interval, err := strconv.Atoi(rawInterval)
	if err != nil || interval <= 0 {
		h.reply(ctx, msg, fmt.Sprintf("Érvénytelen intervallum: `%s`", rawInterval))
		return nil
	}

	if err := h.settings.SetRefreshInterval(interval); err != nil {
		return err
	}
	h.reply(ctx, msg, fmt.Sprintf("Refresh interval módosítva: `%d sec`", interval))
	return nil
}

// parseID parses a numeric id argument, replying to the user on bad input.
func (h *Handler) parseID(ctx context.Context, msg integration.IncomingMessage, raw string) (int64, bool) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		h.reply(ctx, msg, fmt.Sprintf("Érvénytelen azonosító: `%s`", raw))
		return 0, false
	}
	return id, true
}

func formatPrice(price *int64) string {
	if price == nil {
		return "?"
	}
	return strconv.FormatInt(*price, 10)
}

func formatPriceHistory(prices []*int64) string {
	if len(prices) == 0 {
		return "-"
	}
	parts := make([]string, 0, len(prices))
	for _, p := range prices {
		parts = append(parts, formatPrice(p))
	}
	return strings.Join(parts, ", ")
}
