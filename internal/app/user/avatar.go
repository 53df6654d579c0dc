package user

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ItemKindAvatar marks base outfits; every other kind is class-bound gear ("<class>_gear").
const ItemKindAvatar = "avatar"

var (
	ErrUnknownItem        = errors.New("user: unknown outfit item")
	ErrItemLocked         = errors.New("user: outfit item is locked")
	ErrGearIncompatible   = errors.New("user: gear does not fit the chosen avatar")
	ErrDuplicateAccessory = errors.New("user: accessory listed twice")
)

// Item is one entry of the outfit catalog.
type Item struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	UnlockLevel int    `json:"unlockLevel"`
	Kind        string `json:"kind"`
}

// LockedError carries the level an item unlocks at.
type LockedError struct {
	ItemID      string
	UnlockLevel int
}

func (e *LockedError) Error() string {
	return fmt.Sprintf("user: %s unlocks at level %d", e.ItemID, e.UnlockLevel)
}

func (e *LockedError) Unwrap() error { return ErrItemLocked }

var catalog = []Item{
	{ID: "img_avatar_police", Name: "Police Rabbit", UnlockLevel: 0, Kind: ItemKindAvatar},
	{ID: "img_avatar_thief", Name: "Thief Rabbit", UnlockLevel: 10, Kind: ItemKindAvatar},
	{ID: "img_avatar_eulachacha", Name: "Eulachacha Rabbit", UnlockLevel: 21, Kind: ItemKindAvatar},
	{ID: "img_avatar_santa", Name: "Santa Rabbit", UnlockLevel: 51, Kind: ItemKindAvatar},
	{ID: "img_avatar_magician", Name: "Magician Rabbit", UnlockLevel: 61, Kind: ItemKindAvatar},
	{ID: "img_avatar_judge", Name: "Judge Rabbit", UnlockLevel: 81, Kind: ItemKindAvatar},

	{ID: "img_police_lv3", Name: "Police Cap", UnlockLevel: 3, Kind: "police_gear"},
	{ID: "img_police_lv7", Name: "Police Uniform", UnlockLevel: 7, Kind: "police_gear"},

	{ID: "img_thief_lv20", Name: "Thief Hat", UnlockLevel: 20, Kind: "thief_gear"},
	{ID: "img_thief_lv30", Name: "Thief Mask", UnlockLevel: 30, Kind: "thief_gear"},
	{ID: "img_thief_lv40", Name: "Thief Shoes", UnlockLevel: 40, Kind: "thief_gear"},
	{ID: "img_thief_lv50", Name: "Legendary Thief", UnlockLevel: 50, Kind: "thief_gear"},

	{ID: "img_eulachacha_lv25", Name: "Eulachacha Boots", UnlockLevel: 25, Kind: "eulachacha_gear"},
	{ID: "img_eulachacha_lv32", Name: "Eulachacha Badge", UnlockLevel: 32, Kind: "eulachacha_gear"},
	{ID: "img_eulachacha_lv40", Name: "Eulachacha Cape", UnlockLevel: 40, Kind: "eulachacha_gear"},
	{ID: "img_eulachacha_lv45", Name: "Eulachacha Mask", UnlockLevel: 45, Kind: "eulachacha_gear"},

	{ID: "img_santa_lv58", Name: "Santa Shoes", UnlockLevel: 58, Kind: "santa_gear"},
	{ID: "img_santa_lv66", Name: "Santa Suit", UnlockLevel: 66, Kind: "santa_gear"},
	{ID: "img_santa_lv74", Name: "Full Beard", UnlockLevel: 74, Kind: "santa_gear"},
	{ID: "img_santa_lv80", Name: "Santa Hat", UnlockLevel: 80, Kind: "santa_gear"},

	{ID: "img_magician_lv65", Name: "Tailcoat", UnlockLevel: 65, Kind: "magician_gear"},
	{ID: "img_magician_lv70", Name: "Bow Tie", UnlockLevel: 70, Kind: "magician_gear"},
	{ID: "img_magician_lv75", Name: "Polished Shoes", UnlockLevel: 75, Kind: "magician_gear"},
	{ID: "img_magician_lv80", Name: "Magic Wand", UnlockLevel: 80, Kind: "magician_gear"},
	{ID: "img_magician_lv85", Name: "Dove Friend", UnlockLevel: 85, Kind: "magician_gear"},
	{ID: "img_magician_lv90", Name: "Mystery Hat", UnlockLevel: 90, Kind: "magician_gear"},

	{ID: "img_judge_lv87", Name: "Judge Robe", UnlockLevel: 87, Kind: "judge_gear"},
	{ID: "img_judge_lv94", Name: "Gavel of Justice", UnlockLevel: 94, Kind: "judge_gear"},
	{ID: "img_judge_lv100", Name: "Chief Justice Wig", UnlockLevel: 100, Kind: "judge_gear"},
}

var catalogByID = func() map[string]Item {
	m := make(map[string]Item, len(catalog))
	for _, it := range catalog {
		m[it.ID] = it
	}
	return m
}()

// Catalog returns every outfit item in display order.
func Catalog() []Item {
	out := make([]Item, len(catalog))
	copy(out, catalog)
	return out
}

// LookupItem finds an item by identifier.
func LookupItem(id string) (Item, bool) {
	it, ok := catalogByID[id]
	return it, ok
}

// GearKind returns the gear kind an avatar accepts, e.g. "img_avatar_santa" -> "santa_gear".
func GearKind(avatarID string) string {
	class, ok := strings.CutPrefix(avatarID, "img_avatar_")
	if !ok || class == "" {
		return ""
	}
	return class + "_gear"
}

// CompatibleAccessories drops every accessory that does not fit avatarID. Switching avatar
// strips incompatible gear instead of failing.
func CompatibleAccessories(avatarID string, accessoryIDs []string) []string {
	kind := GearKind(avatarID)
	out := make([]string, 0, len(accessoryIDs))
	for _, id := range accessoryIDs {
		if it, ok := catalogByID[id]; ok && it.Kind == kind {
			out = append(out, id)
		}
	}
	return out
}

// ValidateOutfit checks an outfit against the player's level and returns the accessory IDs
// ordered by unlock level, which is the order they are layered and stored in.
func ValidateOutfit(playerLevel int, avatarID string, accessoryIDs []string) ([]string, error) {
	avatar, ok := catalogByID[avatarID]
	if !ok || avatar.Kind != ItemKindAvatar {
		return nil, fmt.Errorf("%w: %q", ErrUnknownItem, avatarID)
	}
	if playerLevel < avatar.UnlockLevel {
		return nil, &LockedError{ItemID: avatar.ID, UnlockLevel: avatar.UnlockLevel}
	}

	kind := GearKind(avatarID)
	seen := make(map[string]struct{}, len(accessoryIDs))
	items := make([]Item, 0, len(accessoryIDs))

	for _, id := range accessoryIDs {
		it, ok := catalogByID[id]
		if !ok || it.Kind == ItemKindAvatar {
			return nil, fmt.Errorf("%w: %q", ErrUnknownItem, id)
		}
		if _, dup := seen[id]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateAccessory, id)
		}
		if it.Kind != kind {
			return nil, fmt.Errorf("%w: %s on %s", ErrGearIncompatible, id, avatarID)
		}
		if playerLevel < it.UnlockLevel {
			return nil, &LockedError{ItemID: it.ID, UnlockLevel: it.UnlockLevel}
		}
		seen[id] = struct{}{}
		items = append(items, it)
	}

	sort.SliceStable(items, func(i, j int) bool { return items[i].UnlockLevel < items[j].UnlockLevel })

	ordered := make([]string, len(items))
	for i, it := range items {
		ordered[i] = it.ID
	}
	return ordered, nil
}

// CatalogEntry is an item annotated with the caller's lock state.
type CatalogEntry struct {
	Item
	Locked bool `json:"locked"`
}

// CatalogFor returns the catalog with lock flags for playerLevel.
func CatalogFor(playerLevel int) []CatalogEntry {
	out := make([]CatalogEntry, len(catalog))
	for i, it := range catalog {
		out[i] = CatalogEntry{Item: it, Locked: playerLevel < it.UnlockLevel}
	}
	return out
}
