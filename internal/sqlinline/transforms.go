package sqlinline

const QInsertTransformJob = `--sql 5ab5eec6-8302-4ad8-a91c-fc03f8f36c16
insert into transform_jobs (id, source_url, style_hint, seed, providers, status, created_at, updated_at)
values ($1::uuid, $2::text, nullif($3::text, ''), $4::int, $5::text[], 'QUEUED', now(), now());
`

const QClaimTransformJob = `--sql 0824111b-eb61-483b-a197-7f52e6dd00bb
with next_job as (
    select id
    from transform_jobs
    where status = 'QUEUED'
    order by created_at asc
    for update skip locked
    limit 1
),
updated as (
    update transform_jobs
    set status = 'RUNNING', updated_at = now()
    where id in (select id from next_job)
    returning id, source_url, style_hint, seed, providers
)
select * from updated;
`

const QCompleteTransformJob = `--sql cb933f16-7940-479d-a6af-3cf5fbb8b40a
update transform_jobs
set status = 'SUCCEEDED',
    reference = $2::text,
    provider = $3::text,
    prompt = $4::text,
    degraded = $5::boolean,
    updated_at = now()
where id = $1::uuid;
`

const QFailTransformJob = `--sql 50663afc-c431-4c69-8282-d4a45dc28126
update transform_jobs
set status = 'FAILED', error = $2::text, updated_at = now()
where id = $1::uuid;
`

const QSelectTransformJob = `--sql dfa69ba1-1bde-4f1d-acd7-bc65a5343b4b
select id, source_url, style_hint, status, coalesce(reference, ''), coalesce(provider, ''),
       coalesce(prompt, ''), coalesce(degraded, false), coalesce(error, ''), created_at, updated_at
from transform_jobs
where id = $1::uuid
limit 1;
`
