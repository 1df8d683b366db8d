package sqlinline

// Statements for the database/sql store (SQLite and MySQL). Timestamps are
// unix nanoseconds and JSON columns are plain text.

const QLiteInsertSession = `--sql 26f0c5ed-637e-4bf4-9fc7-495c1b8e106f
insert into sessions(id, status, original_image_path, original_image_url, original_remote_ref, created_at, updated_at)
values (?, ?, ?, ?, ?, ?, ?);
`

const QLiteSelectSession = `--sql 2f32a7b2-ca6f-4594-bae3-e7f20fc5eb83
select id, status, original_image_path, original_image_url, original_remote_ref,
       rating_json, suggestions_json, created_at, updated_at
from sessions
where id = ?;
`

const QLiteUpdateSessionStatus = `--sql a60ef8e8-9ec1-4b6b-b8a5-af8a2253c176
update sessions set status = ?, updated_at = ? where id = ?;
`

const QLiteUpdateSessionRating = `--sql df137b62-7713-4ac2-b8d3-ea0351b81e92
update sessions set rating_json = ?, suggestions_json = ?, status = 'rated', updated_at = ? where id = ?;
`

const QLiteUpdateSessionRemoteRef = `--sql 8b51619d-54e3-4555-b993-3e02399d31a7
update sessions set original_remote_ref = ?, updated_at = ? where id = ?;
`

const QLiteDeleteSession = `--sql 32f28793-32b5-4fa7-8f3c-13036a86adb3
delete from sessions where id = ?;
`

const QLiteDeleteAssetsBySession = `--sql b1053743-ea33-442c-9080-8bde7c531bba
delete from image_assets where session_id = ?;
`

const QLiteDeleteJobsBySession = `--sql da31e867-b08c-4b58-b5d1-989eb46bf3f0
delete from generation_jobs where session_id = ?;
`

const QLiteInsertImageAsset = `--sql 6c0c5edc-baa5-45a6-b096-8d7afeb82d5e
insert into image_assets(id, session_id, kind, path, url, metadata, created_at)
values (?, ?, ?, ?, ?, ?, ?);
`

const QLiteSelectLatestGeneratedAsset = `--sql ee0eecea-22f5-4dd8-870a-61dea5fa4498
select id, session_id, kind, path, url, metadata, created_at
from image_assets
where session_id = ? and kind = 'generated'
order by created_at desc, id desc
limit 1;
`

const QLiteListAssetsBySession = `--sql 864a1c80-6bc3-4cd2-9f1e-5b91120ef548
select id, session_id, kind, path, url, metadata, created_at
from image_assets
where session_id = ?
order by created_at asc, id asc;
`

const QLiteInsertJob = `--sql f80aae14-71c4-413e-a616-5eed9215ef9a
insert into generation_jobs(id, session_id, status, requested_edits, result_image_urls, error_message, created_at, updated_at)
values (?, ?, 'queued', ?, '[]', '', ?, ?);
`

const QLiteSelectJob = `--sql 2f48edf3-7017-40d1-a56c-db709c3acc09
select id, session_id, status, requested_edits, result_image_urls, error_message, created_at, updated_at
from generation_jobs
where id = ?;
`

const QLiteUpdateJobStatus = `--sql d2d5a70c-30a9-470f-9d92-5e4c0ace4201
update generation_jobs set status = ?, updated_at = ? where id = ?;
`

const QLiteUpdateJobDone = `--sql 7e0c2728-05b8-4ac2-b6cf-44fe9c6268f4
update generation_jobs set status = 'done', result_image_urls = ?, error_message = '', updated_at = ? where id = ?;
`

const QLiteUpdateJobFailed = `--sql 9194f618-eb77-497a-bc77-d168a87bea2b
update generation_jobs set status = 'error', error_message = ?, updated_at = ? where id = ?;
`

const QLiteListJobsBySession = `--sql b367e028-02b1-4010-9162-4a78f26d66b1
select id, session_id, status, requested_edits, result_image_urls, error_message, created_at, updated_at
from generation_jobs
where session_id = ?
order by created_at desc, id desc;
`
