package metric

// DataModel is the Cube data model the measures above are defined in. It is
// displayed verbatim; the registry must stay consistent with it by hand.
const DataModel = "cube('ActiveUsers', {\n" +
	" sql: `SELECT user_id, created_at from orders`,\n" +
	"\n" +
	"  measures: {\n" +
	"    weekly_active: {\n" +
	"      sql: `user_id`,\n" +
	"      type: `countDistinct`,\n" +
	"      rollingWindow: {\n" +
	"        trailing: `7 day`,\n" +
	"        offset: `start`,\n" +
	"      },\n" +
	"      description: `The number of unique users, who placed at least one order in the last 7 days.`\n" +
	"    },\n" +
	"\n" +
	"    daily_active: {\n" +
	"      sql: `user_id`,\n" +
	"      type: `countDistinct`,\n" +
	"      rollingWindow: {\n" +
	"        trailing: `24 hour`,\n" +
	"        offset: `start`,\n" +
	"      },\n" +
	"      description: `The number of unique users, who placed at least one order in the last 24 hours.`\n" +
	"    },\n" +
	"\n" +
	"    monthly_active: {\n" +
	"      sql: `user_id`,\n" +
	"      type: `countDistinct`,\n" +
	"      rollingWindow: {\n" +
	"        trailing: `28 day`,\n" +
	"        offset: `start`,\n" +
	"      },\n" +
	"      description: `The number of unique users, who placed at least one order in the last 28 days.`\n" +
	"    },\n" +
	"\n" +
	"    dau_to_mau: {\n" +
	"      sql: `ROUND(${daily_active}::numeric / NULLIF(${monthly_active}, 0) * 100.0, 2)`,\n" +
	"      type: `number`,\n" +
	"      format: `percent`,\n" +
	"      description: `The ratio of daily active users over monthly active users. Expressed as a percentage; rounded to 2 decimal places.`,\n" +
	"    }\n" +
	"  },\n" +
	"\n" +
	"  dimensions: {\n" +
	"    time: {\n" +
	"      sql: `created_at`,\n" +
	"      type: `time`\n" +
	"    }\n" +
	"  }\n" +
	"});\n"

// CubeName is the cube every metric query selects from.
const CubeName = "ActiveUsers"
