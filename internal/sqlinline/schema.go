package sqlinline

// MigratePostgres creates the Postgres schema. Every statement is idempotent.
var MigratePostgres = []string{
	`--sql 30b80aef-a99b-4740-b86e-a0979ceed6f9
create table if not exists sessions (
  id uuid primary key,
  status text not null,
  original_image_path text not null,
  original_image_url text not null,
  original_remote_ref text,
  rating_json jsonb,
  suggestions_json jsonb,
  created_at timestamptz not null,
  updated_at timestamptz not null
);`,
	`--sql 2724075b-b617-4107-973b-968b6173d78c
create table if not exists image_assets (
  id uuid primary key,
  session_id uuid not null references sessions(id) on delete cascade,
  kind text not null check (kind in ('original', 'generated')),
  path text not null,
  url text not null,
  metadata jsonb not null default '{}'::jsonb,
  created_at timestamptz not null
);`,
	`--sql ebccf166-7744-4acf-96bb-1733b5e936e7
create index if not exists image_assets_session_kind_created_idx
  on image_assets(session_id, kind, created_at desc);`,
	`--sql 49272f0f-d8e5-41f0-a4f5-85a2e78c72f0
create table if not exists generation_jobs (
  id uuid primary key,
  session_id uuid not null references sessions(id) on delete cascade,
  status text not null check (status in ('queued', 'running', 'done', 'error')),
  requested_edits jsonb not null,
  result_image_urls jsonb not null default '[]'::jsonb,
  error_message text not null default '',
  created_at timestamptz not null,
  updated_at timestamptz not null
);`,
	`--sql 9adf5e1b-240a-47cb-8577-be4d40d2bd7c
create index if not exists generation_jobs_session_created_idx
  on generation_jobs(session_id, created_at desc);`,
}

// MigrateSQLite creates the SQLite schema.
var MigrateSQLite = []string{
	`--sql 9c7b31a7-fe0e-40ff-b83f-dec964fea2b4
create table if not exists sessions (
  id text primary key,
  status text not null,
  original_image_path text not null,
  original_image_url text not null,
  original_remote_ref text not null default '',
  rating_json text,
  suggestions_json text,
  created_at integer not null,
  updated_at integer not null
);`,
	`--sql 89bc003e-a4d9-496c-aef1-93e0ef5ecb06
create table if not exists image_assets (
  id text primary key,
  session_id text not null references sessions(id) on delete cascade,
  kind text not null,
  path text not null,
  url text not null,
  metadata text not null default '{}',
  created_at integer not null
);`,
	`--sql e27f3ab4-4fc7-49eb-a515-ef2360ff1af8
create index if not exists image_assets_session_kind_created_idx
  on image_assets(session_id, kind, created_at);`,
	`--sql 629cd8b9-d525-48dc-acf9-7dbc6e1e86bc
create table if not exists generation_jobs (
  id text primary key,
  session_id text not null references sessions(id) on delete cascade,
  status text not null,
  requested_edits text not null,
  result_image_urls text not null default '[]',
  error_message text not null default '',
  created_at integer not null,
  updated_at integer not null
);`,
	`--sql 9415e165-93d7-46b6-9b91-4a9afcce94dc
create index if not exists generation_jobs_session_created_idx
  on generation_jobs(session_id, created_at);`,
}

// MigrateMySQL creates the MySQL schema.
var MigrateMySQL = []string{
	`--sql d14c3a5c-475d-4ef8-9db8-f8e3340fcfcd
create table if not exists sessions (
  id varchar(36) primary key,
  status varchar(16) not null,
  original_image_path text not null,
  original_image_url text not null,
  original_remote_ref text not null,
  rating_json longtext,
  suggestions_json longtext,
  created_at bigint not null,
  updated_at bigint not null
) engine=InnoDB default charset=utf8mb4;`,
	`--sql 97ca91e5-efde-4a17-ab15-a917149539d3
create table if not exists image_assets (
  id varchar(36) primary key,
  session_id varchar(36) not null,
  kind varchar(16) not null,
  path text not null,
  url text not null,
  metadata longtext not null,
  created_at bigint not null,
  index image_assets_session_kind_created_idx (session_id, kind, created_at),
  constraint image_assets_session_fk foreign key (session_id) references sessions(id) on delete cascade
) engine=InnoDB default charset=utf8mb4;`,
	`--sql ed51a507-4ebe-4e99-819d-9f0b6d323f74
create table if not exists generation_jobs (
  id varchar(36) primary key,
  session_id varchar(36) not null,
  status varchar(16) not null,
  requested_edits longtext not null,
  result_image_urls longtext not null,
  error_message text not null,
  created_at bigint not null,
  updated_at bigint not null,
  index generation_jobs_session_created_idx (session_id, created_at),
  constraint generation_jobs_session_fk foreign key (session_id) references sessions(id) on delete cascade
) engine=InnoDB default charset=utf8mb4;`,
}
