package main

import (
	// Import all provider modules to trigger their init() functions
	_ "github.com/rubiojr/glimpse/pkg/providers/mediacloud"
	_ "github.com/rubiojr/glimpse/pkg/providers/redditpushshift"
	_ "github.com/rubiojr/glimpse/pkg/providers/twitter"
	_ "github.com/rubiojr/glimpse/pkg/providers/twitterpushshift"
	_ "github.com/rubiojr/glimpse/pkg/providers/wayback"
)
