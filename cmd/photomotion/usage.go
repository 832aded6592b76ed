package main

// usageSections is the shared tail of every usage template.
const usageSections = `
{{if .HasAvailableSubCommands}}Commands:
{{range .Commands}}{{if (or .IsAvailableCommand (eq .Name "help"))}}  {{rpad .Name .NamePadding }} {{.Short}}
{{end}}{{end}}{{end}}
{{if .HasAvailableLocalFlags}}Flags:
{{.LocalFlags.FlagUsages | trimTrailingWhitespaces}}
{{end}}
{{if .HasAvailableInheritedFlags}}Global Flags:
{{.InheritedFlags.FlagUsages | trimTrailingWhitespaces}}
{{end}}
{{if .HasAvailableSubCommands}}Use "{{.CommandPath}} [command] --help" for more information about a command.
{{end}}`

const subcommandUsageTemplate = `Usage:
  {{.UseLine}}
` + usageSections

const rootUsageTemplate = `Usage:
  photomotion <photo> [flags]
  {{.UseLine}}
{{if .HasAvailableSubCommands}}  {{.CommandPath}} [command]
{{end}}
` + usageSections

const envUsageTemplate = `Usage:
  {{.UseLine}}
  {{.CommandPath}} [command]
` + usageSections
