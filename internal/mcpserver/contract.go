package mcpserver

// BoardConventions describes how LLM consumers address and mutate boards.
const BoardConventions = `# Kanbo Board Conventions

Boards are declared by layout files; tools never create boards or columns.
Cards are the only thing tools change.

## Addressing

- ` + "`" + `board_id` + "`" + ` is the numeric board id from ` + "`" + `list_boards` + "`" + `.
- ` + "`" + `column` + "`" + ` is the zero-based position of a column on the board, left to right.
- ` + "`" + `card` + "`" + ` is the zero-based position of a card in its column **as stored**,
  archived cards included. Call ` + "`" + `get_board` + "`" + ` with ` + "`" + `include_archived: true` + "`" + `
  to see stored positions; the default view hides archived cards and sorts by card id.
- Positions out of range fail with an "index out of range" error and change nothing.

## Mutations

| Tool | Effect | Log entry |
|------|--------|-----------|
| add_card | appends to the end of the column | create |
| update_card | replaces content | edit, with the previous content |
| delete_card | archives the card; it stays in place but is hidden | delete |
| move_card | moves the card to destination_position in destination_column | move |

- ` + "`" + `move_card` + "`" + ` addresses the source card by stored position. A position past
  the end of the column is stale and falls back to the last live card. A destination position below zero inserts at the front; past the end appends.
  The default view sorts cards by id, so the position a card was moved to only shows
  with ` + "`" + `include_archived: true` + "`" + `.
- Every mutation appends exactly one log entry and returns the updated board with
  that entry.

## Audit log

- ` + "`" + `get_history` + "`" + ` and ` + "`" + `get_board` + "`" + ` list the log most recent first.
- Entries are never edited or removed. ` + "`" + `seq` + "`" + ` increases by one per entry.
- For create, edit and delete the column ids in an entry are 1-based column numbers;
  for move they are the real column ids.
`
