// Command readi renders the demo application of the scopedi module in the
// terminal.
//
// The demo is a tree of three injectors:
//
//	App      Logger (console), LoggerConfig, LogSink, HTTPClient
//	Counter  CounterService, Logger -> EnhancedLogger
//	Heroes   HeroService,    Logger -> EnhancedLogger
//
// Each module rebinds Logger, so services constructed inside it log through
// the enhanced logger while the application scope keeps the console one.
//
// Commands
//
//	readi render                 render the whole tree once the heroes are loaded
//	readi counter --clicks 3     click the counter and print every render
//	readi counter --clicks 3 --batch
//	                             apply the clicks in one batch, render once
//	readi providers              print each module's injector chain
//
// Persistent flags
//
//	--config path      readi.yaml to load (default ./readi.yaml when present)
//	--debug            wrap every injector's output with its providers
//	--log-level level  override log.level from the config
//	--metrics          print the scope metrics after the command
//	--no-color         disable colors in the providers output
//
// Configuration
//
//	log:
//	  level: info
//	  development: false
//	debug: false
//	logger:
//	  allow: true
//	heroes:
//	  delay: 50ms
package main
