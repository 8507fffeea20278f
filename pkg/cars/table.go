// Package cars knows about the car folders in the setups root: which real
// iRacing folder an arbitrarily named folder stands for, and which cars are
// variants of each other.
package cars

import (
	"strings"
)

// Alias maps a common car name to its iRacing setups folder.
type Alias struct {
	Alias  string
	Folder string
}

// Table is the list of known car names. Order matters: when identifying a
// folder, the first matching entry wins.
var Table = []Alias{
	{Alias: "ir18", Folder: "dallarair18"},
	{Alias: "aston gt4", Folder: "amvantagegt4"},
	{Alias: "bmw gt4 evo", Folder: "bmwm4evogt4"},
	{Alias: "mclaren gt4", Folder: "mclaren570sgt4"},
	{Alias: "bmw gt3", Folder: "bmwm4gt3"},
	{Alias: "mclaren gt3", Folder: "mclaren720sgt3"},
	{Alias: "mclaren gtd", Folder: "mclaren720sgt3"},
	{Alias: "acura gtp", Folder: "acuraarx06gtp"},
	{Alias: "audi gtd", Folder: "audir8lmsevo2gt3"},
	{Alias: "audi gt3", Folder: "audir8lmsevo2gt3"},
	{Alias: "bmw gtd", Folder: "bmwm4gt3"},
	{Alias: "bmw gtp", Folder: "bmwlmdh"},
	{Alias: "cadillac gtp", Folder: "cadillacvseriesrgtp"},
	{Alias: "corvette gtd", Folder: "chevyvettez06rgt3"},
	{Alias: "corvette gt3", Folder: "chevyvettez06rgt3"},
	{Alias: "dallara lmp2", Folder: "dallarap217"},
	{Alias: "ferrari 499p", Folder: "ferrari499p"},
	{Alias: "ferrari gtd", Folder: "ferrari296gt3"},
	{Alias: "ferrari gt3", Folder: "ferrari296gt3"},
	{Alias: "lamborghini gtd", Folder: "lamborghinievogt3"},
	{Alias: "lamborghini gt3", Folder: "lamborghinievogt3"},
	{Alias: "mercedes gtd", Folder: "mercedesamgevogt3"},
	{Alias: "mercedes gt3", Folder: "mercedesamgevogt3"},
	{Alias: "mustang gtd", Folder: "fordmustanggt3"},
	{Alias: "mustang gt3", Folder: "fordmustanggt3"},
	{Alias: "porsche gtd", Folder: "porsche992rgt3"},
	{Alias: "porsche gt3", Folder: "porsche992rgt3"},
	{Alias: "porsche gtp", Folder: "porsche963gtp"},
	{Alias: "fia f4", Folder: "formulair04"},
	{Alias: "porsche gt4", Folder: "porsche718gt4"},
	{Alias: "mercedes gt4", Folder: "mercedesamggt4"},
	{Alias: "lmp3", Folder: "ligierjsp320"},
	{Alias: "sfl", Folder: "superformulalights324"},
	{Alias: "pcup", Folder: "porsche992cup"},
	{Alias: "porsche gte", Folder: "porsche991rsr"},
	{Alias: "corvette gte", Folder: "c8rvettegte"},
	{Alias: "nsx gt3", Folder: "acuransxevo22gt3"},
	{Alias: "nsx gtd", Folder: "acuransxevo22gt3"},
}

// Group is a set of cars whose setups are interchangeable, and so share a
// single Source tree.
type Group struct {
	Name    string
	Members []string
}

// Groups are the built in variant groups.
var Groups = []Group{
	{
		Name: "nascar trucks",
		Members: []string{
			"trucks toyotatundra2022",
			"trucks fordf150",
			"trucks silverado2019",
		},
	},
	{
		Name: "nascar xfinity",
		Members: []string{
			"stockcars2 supra2019",
			"stockcars2 mustang2019",
			"stockcars2 camaro2019",
		},
	},
	{
		Name: "nascar nextgen",
		Members: []string{
			"stockcars chevycamarozl12022",
			"stockcars fordmustang2022",
			"stockcars toyotacamry2022",
		},
	},
}

// GroupOf returns the name of the variant group that `folder` belongs to.
func GroupOf(folder string) (string, bool) {
	folder = strings.ToLower(folder)
	for _, group := range Groups {
		for _, member := range group.Members {
			if member == folder {
				return group.Name, true
			}
		}
	}
	return "", false
}

// IsKnownFolder returns whether `folder` is a real iRacing folder that
// setups-sync knows about.
func IsKnownFolder(folder string) bool {
	folder = strings.ToLower(folder)
	if _, ok := GroupOf(folder); ok {
		return true
	}

	for _, entry := range Table {
		if entry.Folder == folder {
			return true
		}
	}
	return false
}

// Identify guesses the iRacing folder for an imported folder. Imported
// folders are usually named "<prefix> - <car name>", so only the part after
// the first dash is considered when there is one. A name matches if it
// contains either an alias or a folder name.
func Identify(folder string) (string, bool) {
	name := strings.ToLower(folder)
	if parts := strings.Split(folder, "-"); len(parts) >= 2 {
		name = strings.ToLower(strings.TrimSpace(parts[1]))
	}

	for _, entry := range Table {
		if strings.Contains(name, entry.Alias) || strings.Contains(name, entry.Folder) {
			return entry.Folder, true
		}
	}

	for _, group := range Groups {
		for _, member := range group.Members {
			if strings.Contains(name, group.Name) || strings.Contains(name, member) {
				return member, true
			}
		}
	}
	return "", false
}
