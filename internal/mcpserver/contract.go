package mcpserver

// FrontmatterContract describes the canonical TaskNote/ProjectNote/SectionNote
// frontmatter shape that the reconciler reads and writes. LLM consumers
// editing the vault directly should read this before touching a managed
// note's frontmatter block.
const FrontmatterContract = `# TaskVault Frontmatter Contract

Every file the reconciler manages carries a YAML frontmatter block as the
first thing in the file, delimited by ` + "`---`" + ` lines. The engine only reads
and writes the frontmatter; the Markdown body below it is yours.

## TaskNote

` + "```" + `yaml
---
vault_uuid: 3f9e2c1a-...            # write-once, never changes after creation
created: 2026-01-05T09:00:00Z
modified: 2026-01-05T09:00:00Z
tags: [work]

task_title: Buy milk
task_status: Open                   # Open | Done
task_done: false                    # mirrors task_status == Done

remote_task_id: "6Xg7h3"
remote_project_id: "2203306141"
remote_section_id: ""
project_name: Personal
section_name: ""
project_link: "[[Tasks/Personal/_index.md|Personal]]"
section_link: ""

priority: 1
priority_label: P4
due: 2026-03-09
due_string: "next sunday"
is_recurring: false
deadline: ""
description: ""
labels: []

parent_task_link: ""
child_tasks: []
has_children: false
child_count: 0
url: "https://todoist.com/showTask?id=6Xg7h3"

sync_flag: true
sync_status: synced                 # synced | dirty_local | queued_local_create |
                                     # local_only | missing_remote |
                                     # completed_remote | archived_remote | deleted_remote
pending_remote_id: ""
last_imported_fingerprint: "a1b2c3d4"
last_synced_fingerprint: "a1b2c3d4"
last_imported_at: 2026-01-05T09:00:00Z
is_deleted: false
recurrence: ""
complete_instances: []
---
` + "```" + `

## ProjectNote

` + "```" + `yaml
---
vault_uuid: ...
remote_project_id: "2203306141"
project_name: Personal
color: charcoal
parent_project_link: ""
parent_project_name: ""
---
` + "```" + `

## SectionNote

` + "```" + `yaml
---
vault_uuid: ...
remote_section_id: "160234"
section_name: Groceries
remote_project_id: "2203306141"
project_name: Personal
project_link: "[[Tasks/Personal/_index.md|Personal]]"
---
` + "```" + `

## Rules

1. ` + "`vault_uuid`" + ` is assigned once by the engine's backfill pass and is never
   rewritten. Do not set or change it by hand.
2. ` + "`remote_task_id`" + `/` + "`remote_project_id`" + `/` + "`remote_section_id`" + ` are what makes a file
   "managed". Removing one changes which kind of note the file is indexed as.
3. To flag a new local-only note for push, set ` + "`sync_flag: true`" + ` and leave
   ` + "`remote_task_id`" + ` and ` + "`pending_remote_id`" + ` empty with a non-empty ` + "`task_title`" + `.
4. To flag an edited synced note for push, set ` + "`sync_status: dirty_local`" + `.
   Do not edit the signature fields (` + "`last_imported_fingerprint`" + `,
   ` + "`last_synced_fingerprint`" + `) by hand; the engine recomputes them.
5. The two signature fields must each be an 8-character lowercase hex string,
   or the empty string — any other value is repaired to an empty string on the next run.
`
