package sqlite

// Schema DDL. AUTOINCREMENT keeps SQLite from reusing the ID of a deleted
// row for the lifetime of the database file.
const (
	createProducts = `CREATE TABLE IF NOT EXISTS products (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    description TEXT,
    quantity REAL,
    unit_price REAL
);`
)

// schemaDDL lists all CREATE TABLE statements in dependency order.
var schemaDDL = []string{
	createProducts,
}

// productColumns is the column list shared by every product SELECT.
const productColumns = "id, description, quantity, unit_price"
