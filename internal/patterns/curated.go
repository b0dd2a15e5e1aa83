package patterns

import "github.com/holidarr/holidarr/internal/holiday"

var curated = map[holiday.Holiday]HolidayPatterns{
	holiday.Christmas: {
		Include: []string{
			`\bchristmas\b`,
			`\bx-?mas\b`,
			`\bsanta\b`,
			`\bsanta claus\b`,
			`\bst\.? nick\b`,
			`\bnorth pole\b`,
			`\byule(tide)?\b`,
			`\bnoel\b`,
			`\bmistletoe\b`,
			`\breindeer\b`,
			`\brudolph\b`,
			`\bsleigh\b`,
			`\bjingle\b`,
			`\bnutcracker\b`,
			`\bgrinch\b`,
			`\bscrooge\b`,
			`\bgingerbread\b`,
			`\bnativity\b`,
			`\bsnow ?m[ae]n\b`,
			`\bwinter wonderland\b`,
			`\bholiday special\b`,
			`\bdecember 25(th)?\b`,
			`\bstockings?\b`,
			`\bcarol(s|ing)?\b`,
			`\belf\b`,
			`\belves\b`,
		},
		Strong: []string{
			`\bchristmas\b`,
			`\bx-?mas\b`,
			`\bsanta claus\b`,
			`\byule(tide)?\b`,
		},
		Required: []RequiredTitle{
			{Title: "Die Hard", Year: 1988},
			{Title: "Home Alone", Year: 1990},
			{Title: "Home Alone 2: Lost in New York", Year: 1992},
			{Title: "It's a Wonderful Life", Year: 1946},
			{Title: "Gremlins", Year: 1984},
			{Title: "Love Actually", Year: 2003},
			{Title: "The Polar Express", Year: 2004},
			{Title: "Miracle on 34th Street", Year: 1947},
			{Title: "Miracle on 34th Street", Year: 1994},
			{Title: "Klaus", Year: 2019},
			{Title: "Krampus", Year: 2015},
			{Title: "The Holiday", Year: 2006},
			{Title: "Scrooged", Year: 1988},
			{Title: "Edward Scissorhands", Year: 1990},
			{Title: "White Christmas", Year: 1954},
		},
	},
	holiday.Halloween: {
		Include: []string{
			`\bhalloween\b`,
			`\ball hallows('? eve)?\b`,
			`\btrick[- ]or[- ]treat(ing)?\b`,
			`\btreehouse of horror\b`,
			`\bjack-?o'?-?lanterns?\b`,
			`\bpumpkins?\b`,
			`\bhaunted\b`,
			`\bhaunted house\b`,
			`\bghosts?\b`,
			`\bwitch(es|craft)?\b`,
			`\bspooky\b`,
			`\bcostume party\b`,
			`\bmonster mash\b`,
			`\boctober 31(st)?\b`,
			`\bsamhain\b`,
			`\bcandy corn\b`,
		},
		Strong: []string{
			`\bhalloween\b`,
			`\btrick[- ]or[- ]treat(ing)?\b`,
			`\btreehouse of horror\b`,
			`\ball hallows('? eve)?\b`,
		},
		Required: []RequiredTitle{
			{Title: "Hocus Pocus", Year: 1993},
			{Title: "Halloweentown", Year: 1998},
			{Title: "Trick 'r Treat", Year: 2007},
			{Title: "The Nightmare Before Christmas", Year: 1993},
			{Title: "It's the Great Pumpkin, Charlie Brown", Year: 1966},
			{Title: "Ernest Scared Stupid", Year: 1991},
			{Title: "Casper", Year: 1995},
			{Title: "The Addams Family", Year: 1991},
		},
	},
	holiday.Thanksgiving: {
		Include: []string{
			`\bthanksgiving\b`,
			`\bturkey day\b`,
			`\bturkey\b`,
			`\bpilgrims?\b`,
			`\bmayflower\b`,
			`\bcranberr(y|ies)\b`,
			`\bharvest feast\b`,
			`\bgobble\b`,
			`\bfriendsgiving\b`,
			`\bparade\b`,
		},
		Strong: []string{
			`\bthanksgiving\b`,
			`\bturkey day\b`,
			`\bfriendsgiving\b`,
		},
		Required: []RequiredTitle{
			{Title: "Planes, Trains and Automobiles", Year: 1987},
			{Title: "Pieces of April", Year: 2003},
			{Title: "Home for the Holidays", Year: 1995},
			{Title: "Addams Family Values", Year: 1993},
			{Title: "The Ice Storm", Year: 1997},
			{Title: "Free Birds", Year: 2013},
		},
	},
	holiday.ValentinesDay: {
		Include: []string{
			`\bvalentines?\b`,
			`\bvalentine'?s day\b`,
			`\bbe my valentine\b`,
			`\bcupid\b`,
			`\bsweethearts?\b`,
			`\blove letters?\b`,
			`\bfebruary 14(th)?\b`,
			`\bheart-shaped\b`,
		},
		Strong: []string{
			`\bvalentine'?s day\b`,
			`\bbe my valentine\b`,
		},
		Required: []RequiredTitle{
			{Title: "Sleepless in Seattle", Year: 1993},
			{Title: "The Notebook", Year: 2004},
			{Title: "When Harry Met Sally...", Year: 1989},
		},
	},
}

// curatedExclude vetoes text that looks like a holiday but is not one.
var curatedExclude = []string{
	`\bchristmas island\b`,
	`\bchristmas jones\b`,
	`\bsanta (fe|barbara|monica|clarita|cruz|ana|rosa|clara|maria)\b`,
	`\bcold turkey\b`,
	`\b(istanbul|ankara),? turkey\b`,
	`\bst\.? valentine'?s day massacre\b`,
	`\bghost (writer|protocol|recon)\b`,
	`\bwitch ?hunt(s|ing)? (of|against) the\b`,
}
