package sqlinline

// Postgres statements. Timestamps are passed in by the store so ordering is
// decided by the writer, not the server clock.

const QInsertSession = `--sql 76228a05-4c01-447b-861a-24e7629862e4
insert into sessions(id, status, original_image_path, original_image_url, original_remote_ref, created_at, updated_at)
values ($1::uuid, $2::text, $3::text, $4::text, nullif($5::text, ''), $6::timestamptz, $6::timestamptz);
`

const QSelectSession = `--sql 43cc05c6-3dc4-45f7-acb2-5871e7b12968
select id::text, status, original_image_path, original_image_url, coalesce(original_remote_ref, ''),
       rating_json, suggestions_json, created_at, updated_at
from sessions
where id = $1::uuid
limit 1;
`

const QUpdateSessionStatus = `--sql 5cbd843a-ed2d-4c78-9746-62a5017ad0f5
update sessions
set status = $2::text, updated_at = $3::timestamptz
where id = $1::uuid;
`

const QUpdateSessionRating = `--sql 2c449b2a-6a83-41df-993d-e1005fccdd8a
update sessions
set rating_json = $2::jsonb, suggestions_json = $3::jsonb, status = 'rated', updated_at = $4::timestamptz
where id = $1::uuid;
`

const QUpdateSessionRemoteRef = `--sql ea3f00b0-ae5f-431a-b309-d168bb79a012
update sessions
set original_remote_ref = nullif($2::text, ''), updated_at = $3::timestamptz
where id = $1::uuid;
`

const QDeleteSession = `--sql 4295b144-01dd-4875-a631-2c479690cdf2
delete from sessions
where id = $1::uuid;
`

const QInsertImageAsset = `--sql bc46b54f-b5e6-470d-83ab-89f9a59fab11
insert into image_assets(id, session_id, kind, path, url, metadata, created_at)
values ($1::uuid, $2::uuid, $3::text, $4::text, $5::text, $6::jsonb, $7::timestamptz);
`

const QSelectLatestGeneratedAsset = `--sql f9069a3e-5f30-4cda-949e-b9729a4c50f7
select id::text, session_id::text, kind, path, url, metadata, created_at
from image_assets
where session_id = $1::uuid and kind = 'generated'
order by created_at desc, id desc
limit 1;
`

const QListAssetsBySession = `--sql 5e4336de-e2d8-4e95-b4aa-17474928d443
select id::text, session_id::text, kind, path, url, metadata, created_at
from image_assets
where session_id = $1::uuid
order by created_at asc, id asc;
`

const QInsertJob = `--sql f14de335-4563-42e9-bda5-a18c1afc45e2
insert into generation_jobs(id, session_id, status, requested_edits, result_image_urls, error_message, created_at, updated_at)
values ($1::uuid, $2::uuid, 'queued', $3::jsonb, '[]'::jsonb, '', $4::timestamptz, $4::timestamptz);
`

const QSelectJob = `--sql 743b3d3b-80f2-4d4e-aff9-6b2dfa508cf2
select id::text, session_id::text, status, requested_edits, result_image_urls, error_message, created_at, updated_at
from generation_jobs
where id = $1::uuid
limit 1;
`

const QUpdateJobStatus = `--sql 5db74a0e-0dab-4fc7-9bd4-8a9ac7fc4ae2
update generation_jobs
set status = $2::text, updated_at = $3::timestamptz
where id = $1::uuid;
`

const QUpdateJobDone = `--sql 37ca8aac-425a-47a3-bee4-2c5c1db13043
update generation_jobs
set status = 'done', result_image_urls = $2::jsonb, error_message = '', updated_at = $3::timestamptz
where id = $1::uuid;
`

const QUpdateJobFailed = `--sql 0a6e44c2-c0a8-4198-a8e7-8e5d10252f43
update generation_jobs
set status = 'error', error_message = $2::text, updated_at = $3::timestamptz
where id = $1::uuid;
`

const QListJobsBySession = `--sql ef769e3b-8b98-458f-b26a-b51872c72050
select id::text, session_id::text, status, requested_edits, result_image_urls, error_message, created_at, updated_at
from generation_jobs
where session_id = $1::uuid
order by created_at desc, id desc;
`
